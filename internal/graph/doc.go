// Package graph validates and repairs LLM-proposed edge sets into a
// guaranteed-acyclic graph and computes topological layers for
// rendering and export ordering.
//
// BuildAcyclicGraph is a pure function: it never fails, never mutates
// its inputs, and is deterministic for a fixed node-id order.
package graph
