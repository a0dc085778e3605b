// Package bus implements the per-project publish/subscribe event bus.
//
// Producers (pipeline phases) publish typed events to a topic; live
// sinks (UI connections) receive them. Each topic keeps a bounded,
// time-windowed replay buffer so a subscriber that connects between
// two publishes still sees recent history. The bus is an explicitly
// constructed service with process lifetime; callers receive a
// reference, there is no package-level instance.
package bus
