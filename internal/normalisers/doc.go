// Package normalisers provides implementations of the Normaliser interface
// for persona document formats. Each normaliser knows how to turn a file of
// a specific extension into plain reference text ready for chunking.
//
// Normalisers are registered with the Registry at startup; files with no
// format-specific normaliser fall through to the plaintext fallback.
package normalisers
