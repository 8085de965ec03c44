// Package connectors holds the persona source implementations and the
// descriptor format they share. Each source knows how to read persona
// definitions from a specific location (a local directory, a GitHub
// repository).
//
// A persona is a directory named after its ID containing a persona.toml
// descriptor and a reference document. The descriptor carries the display
// name, optional style directives, and optional generation parameter
// overrides; the document provides the character's reference text.
package connectors
