package filesystem

import (
	"path/filepath"
	"strings"

	"github.com/custodia-labs/fabula/internal/connectors"
)

// ResolveLocalPath converts a persona document URI to a local path for
// opening. Handles file:// URIs and bare paths.
func ResolveLocalPath(uri string) string {
	// Strip file:// prefix for local paths
	if strings.HasPrefix(uri, "file://") {
		return strings.TrimPrefix(uri, "file://")
	}
	// Bare paths pass through unchanged
	return uri
}

// PersonaDir returns the directory a persona occupies under the root.
func PersonaDir(rootPath, personaID string) string {
	return filepath.Join(rootPath, personaID)
}

// DescriptorPath returns the persona.toml location for a persona.
func DescriptorPath(rootPath, personaID string) string {
	return filepath.Join(rootPath, personaID, connectors.DescriptorFile)
}
