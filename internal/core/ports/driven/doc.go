// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings for chunks and ideas
//   - IndexBuilder: Constructs immutable persona indexes
//   - StoryModel: Generates narratives from assembled prompts
//   - PersonaStore: Persona, chunk, and usage persistence
//   - PersonaSource: Reads persona definitions from a source
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - RerankService: Second-pass relevance scoring. Without it, retrieval
//     order is used unmodified and results carry the unreranked tag.
//   - ImageProvider: Image generation. Providers form a priority chain;
//     each may fail independently.
//   - ResponseCache: Generation result caching. Without it, every request
//     runs the full pipeline.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
