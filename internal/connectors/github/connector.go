package github

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/fabula/internal/connectors"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.PersonaSource = (*Connector)(nil)

// Connector reads persona definitions from a pack in a GitHub repository.
type Connector struct {
	ref      PackRef
	client   *Client
	registry driven.NormaliserRegistry

	mu     sync.Mutex
	closed bool
}

// New creates a GitHub persona source for a pack reference. The token may
// be empty for public repositories.
func New(ref PackRef, token string, registry driven.NormaliserRegistry) *Connector {
	return &Connector{
		ref:      ref,
		client:   NewClient(context.Background(), token),
		registry: registry,
	}
}

// Type returns the source type identifier.
func (c *Connector) Type() string {
	return "github"
}

// Capabilities returns what this source supports.
func (c *Connector) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsWatch:        false, // No webhooks in CLI
		RequiresAuth:         true,
		SupportsRateLimiting: true,
	}
}

// Validate checks the repository exists and is accessible.
func (c *Connector) Validate(ctx context.Context) error {
	if err := c.guardOpen(); err != nil {
		return err
	}

	if _, err := c.client.GetRepository(ctx, c.ref.Owner, c.ref.Repo); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %s/%s", ErrRepoNotFound, c.ref.Owner, c.ref.Repo)
		}
		return fmt.Errorf("checking repository: %w", err)
	}
	return nil
}

// Scan reads every persona definition in the pack. A malformed persona
// directory is skipped with a warning; an empty pack is an error, since an
// import that finds nothing almost always means a wrong path or ref.
func (c *Connector) Scan(ctx context.Context) ([]domain.PersonaDefinition, error) {
	if err := c.guardOpen(); err != nil {
		return nil, err
	}

	repo, err := c.client.GetRepository(ctx, c.ref.Owner, c.ref.Repo)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrRepoNotFound, c.ref.Owner, c.ref.Repo)
		}
		return nil, fmt.Errorf("fetching repository: %w", err)
	}

	ref := c.ref.Ref
	if ref == "" {
		ref = repo.GetDefaultBranch()
	}

	tree, err := c.client.GetTree(ctx, c.ref.Owner, c.ref.Repo, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching pack tree: %w", err)
	}

	groups := groupPackEntries(tree.Entries, c.ref.Path)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPersonas, c.ref.String())
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	definitions := make([]domain.PersonaDefinition, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !domain.ValidPersonaID(id) {
			logger.Warn("Skipping pack directory %q: not a valid persona id", id)
			continue
		}

		def, err := c.loadDefinition(ctx, id, groups[id])
		if err != nil {
			if IsRateLimited(err) {
				return nil, err
			}
			logger.Warn("Skipping persona %q in pack %s: %v", id, c.ref.String(), err)
			continue
		}
		definitions = append(definitions, *def)
	}

	return definitions, nil
}

// Watch is not supported; GitHub packs are imported on demand.
func (c *Connector) Watch(_ context.Context) (<-chan domain.PersonaEvent, error) {
	return nil, domain.ErrWatchUnsupported
}

// Close releases resources. Scans after Close fail with ErrSourceClosed.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// guardOpen fails when the connector has been closed.
func (c *Connector) guardOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSourceClosed
	}
	return nil
}

// packEntry is one blob inside a persona directory.
type packEntry struct {
	name string // filename inside the persona directory
	sha  string // blob SHA
}

// groupPackEntries groups tree blobs by persona directory. Only direct
// children of a persona directory count; deeper nesting and files outside
// the pack path are ignored.
func groupPackEntries(entries []*gh.TreeEntry, packPath string) map[string][]packEntry {
	groups := make(map[string][]packEntry)
	prefix := ""
	if packPath != "" {
		prefix = strings.Trim(packPath, "/") + "/"
	}

	for _, entry := range entries {
		if entry.GetType() != "blob" {
			continue
		}

		path := entry.GetPath()
		if prefix != "" {
			if !strings.HasPrefix(path, prefix) {
				continue
			}
			path = strings.TrimPrefix(path, prefix)
		}

		parts := strings.Split(path, "/")
		if len(parts) != 2 {
			continue
		}
		id, name := parts[0], parts[1]
		if strings.HasPrefix(id, ".") || strings.HasPrefix(name, ".") {
			continue
		}

		groups[id] = append(groups[id], packEntry{name: name, sha: entry.GetSHA()})
	}

	return groups
}

// loadDefinition fetches and assembles one persona from its pack entries.
func (c *Connector) loadDefinition(ctx context.Context, id string, entries []packEntry) (*domain.PersonaDefinition, error) {
	var descriptorSHA string
	for _, entry := range entries {
		if entry.name == connectors.DescriptorFile {
			descriptorSHA = entry.sha
			break
		}
	}
	if descriptorSHA == "" {
		return nil, fmt.Errorf("%w: no %s", domain.ErrInvalidInput, connectors.DescriptorFile)
	}

	data, err := c.client.GetBlob(ctx, c.ref.Owner, c.ref.Repo, descriptorSHA)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", connectors.DescriptorFile, err)
	}
	desc, err := connectors.ParseDescriptor(data)
	if err != nil {
		return nil, err
	}

	docName, docSHA, err := resolveDocumentEntry(entries, desc.Document)
	if err != nil {
		return nil, err
	}
	raw, err := c.client.GetBlob(ctx, c.ref.Owner, c.ref.Repo, docSHA)
	if err != nil {
		return nil, fmt.Errorf("fetching document %s: %w", docName, err)
	}
	document, err := c.registry.Normalise(ctx, docName, raw)
	if err != nil {
		return nil, err
	}

	def := desc.Definition(id, document)
	return &def, nil
}

// resolveDocumentEntry picks the persona's reference document from the
// directory's entries: the descriptor's explicit filename when set,
// otherwise the first supported file by sorted name.
func resolveDocumentEntry(entries []packEntry, explicit string) (string, string, error) {
	if explicit != "" {
		for _, entry := range entries {
			if entry.name == explicit {
				return entry.name, entry.sha, nil
			}
		}
		return "", "", fmt.Errorf("%w: document %q not in pack", domain.ErrInvalidInput, explicit)
	}

	candidates := make([]packEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.name == connectors.DescriptorFile {
			continue
		}
		if connectors.IsDocumentFile(entry.name) {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		return "", "", fmt.Errorf("%w: no reference document found", domain.ErrInvalidInput)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].name < candidates[j].name
	})
	return candidates[0].name, candidates[0].sha, nil
}
