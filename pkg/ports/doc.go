/*
Package ports defines the driven ports (interfaces) for the Rapport engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various language-model providers, caches and result stores.

# Key Interfaces

  - Provider: a text-generation backend (OpenAI-compatible, Ollama, scripted).
  - ResponseCache: TTL-keyed storage for generation responses.
  - ResultStore: persistence collaborator for finished playthroughs.
  - StepLoader: source of authored dialogue graphs.
*/
package ports
