// Package storage provides canvas store implementations.
//
// Implementations:
//   - redis: Redis hashes with JSON serialization (default)
//   - postgres: PostgreSQL via pgx
//   - memory: In-memory for testing
package storage
