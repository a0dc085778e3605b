// Package ports declares the interfaces the pipeline core depends on:
// the persistent store, the LLM-backed capabilities, the enrichment
// generator and the metrics collector. Adapters under pkg/adapters
// provide the implementations; the core never imports them directly.
package ports
