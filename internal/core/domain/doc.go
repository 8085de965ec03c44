// Package domain defines the core business entities for Fabula.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Persona: A character profile with style directives
//   - Chunk: An embeddable span of a persona's reference document
//   - Session: A conversation context with an explicit lifecycle
//   - GenerationResult: A generated story with its token accounting
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
