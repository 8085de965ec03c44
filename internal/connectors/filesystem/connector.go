// Package filesystem reads persona definitions from a local directory
// tree. Each persona is a directory named after its ID containing a
// persona.toml descriptor and a reference document (.md or .txt).
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/fabula/internal/connectors"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.PersonaSource = (*Connector)(nil)

// Connector reads persona definitions from a root directory.
type Connector struct {
	rootPath string
	registry driven.NormaliserRegistry

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a filesystem persona source rooted at rootPath. The registry
// converts document files into plain reference text.
func New(rootPath string, registry driven.NormaliserRegistry) *Connector {
	return &Connector{
		rootPath: rootPath,
		registry: registry,
	}
}

// Type returns the source type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// Capabilities returns what this source supports.
func (c *Connector) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsWatch:        true,
		RequiresAuth:         false,
		SupportsRateLimiting: false,
	}
}

// Validate checks the root directory exists and is readable.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.rootPath)
	}
	return nil
}

// Scan reads all persona definitions under the root. A malformed persona
// directory is skipped with a warning; it never fails the whole scan.
func (c *Connector) Scan(ctx context.Context) ([]domain.PersonaDefinition, error) {
	if err := c.guardOpen(); err != nil {
		return nil, err
	}
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("reading personas directory: %w", err)
	}

	definitions := make([]domain.PersonaDefinition, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || isHidden(entry.Name()) {
			continue
		}

		def, err := c.loadDefinition(ctx, entry.Name())
		if err != nil {
			logger.Warn("Skipping persona directory %q: %v", entry.Name(), err)
			continue
		}
		definitions = append(definitions, *def)
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].ID < definitions[j].ID
	})
	return definitions, nil
}

// Watch emits an event whenever a persona directory changes. Events carry
// the persona ID only; callers rescan or reindex as needed. The channel
// closes when ctx ends or the connector is closed.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.PersonaEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domain.ErrSourceClosed
	}
	if _, err := os.Stat(c.rootPath); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(c.rootPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", c.rootPath, err)
	}

	// Watch existing persona directories; new ones are added as their
	// create events arrive.
	entries, err := os.ReadDir(c.rootPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("reading personas directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && !isHidden(entry.Name()) {
			if err := watcher.Add(filepath.Join(c.rootPath, entry.Name())); err != nil {
				logger.Warn("Cannot watch persona directory %q: %v", entry.Name(), err)
			}
		}
	}

	c.watcher = watcher
	events := make(chan domain.PersonaEvent)

	go c.watchLoop(ctx, watcher, events)

	return events, nil
}

// watchLoop translates raw fsnotify events into persona events.
func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, events chan<- domain.PersonaEvent) {
	defer close(events)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-watcher.Events:
			if !ok {
				return
			}
			event, add := c.translateEvent(fsEvent)
			if add != "" {
				if err := watcher.Add(add); err != nil {
					logger.Warn("Cannot watch new persona directory %q: %v", add, err)
				}
			}
			if event == nil {
				continue
			}
			select {
			case events <- *event:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Persona watcher error: %v", err)
		}
	}
}

// translateEvent maps one fsnotify event to a persona event. The second
// return names a newly created persona directory the watcher should track.
func (c *Connector) translateEvent(fsEvent fsnotify.Event) (*domain.PersonaEvent, string) {
	rel, err := filepath.Rel(c.rootPath, fsEvent.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, ""
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	personaID := parts[0]
	if isHidden(personaID) || !domain.ValidPersonaID(personaID) {
		return nil, ""
	}

	topLevel := len(parts) == 1

	switch {
	case fsEvent.Op.Has(fsnotify.Create):
		if topLevel {
			// A new persona directory appeared; start watching inside it.
			if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
				return &domain.PersonaEvent{Type: domain.ChangeCreated, PersonaID: personaID}, fsEvent.Name
			}
			return nil, ""
		}
		return &domain.PersonaEvent{Type: domain.ChangeUpdated, PersonaID: personaID}, ""

	case fsEvent.Op.Has(fsnotify.Write):
		return &domain.PersonaEvent{Type: domain.ChangeUpdated, PersonaID: personaID}, ""

	case fsEvent.Op.Has(fsnotify.Remove), fsEvent.Op.Has(fsnotify.Rename):
		if topLevel {
			return &domain.PersonaEvent{Type: domain.ChangeDeleted, PersonaID: personaID}, ""
		}
		return &domain.PersonaEvent{Type: domain.ChangeUpdated, PersonaID: personaID}, ""

	default:
		// Chmod and other noise.
		return nil, ""
	}
}

// Close releases resources. Scans after Close fail with ErrSourceClosed.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
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

// ==================== Definition Loading ====================

// loadDefinition reads one persona directory into a definition.
func (c *Connector) loadDefinition(ctx context.Context, id string) (*domain.PersonaDefinition, error) {
	if !domain.ValidPersonaID(id) {
		return nil, fmt.Errorf("%w: directory name %q is not a valid persona id", domain.ErrInvalidInput, id)
	}

	dir := filepath.Join(c.rootPath, id)
	data, err := os.ReadFile(filepath.Join(dir, connectors.DescriptorFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", connectors.DescriptorFile, err)
	}

	desc, err := connectors.ParseDescriptor(data)
	if err != nil {
		return nil, err
	}

	docPath, err := c.resolveDocument(dir, desc.Document)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	document, err := c.registry.Normalise(ctx, docPath, raw)
	if err != nil {
		return nil, err
	}

	def := desc.Definition(id, document)
	return &def, nil
}

// resolveDocument finds the persona's reference document: the descriptor's
// explicit filename when set, otherwise the first supported file in the
// directory by sorted name.
func (c *Connector) resolveDocument(dir, explicit string) (string, error) {
	if explicit != "" {
		path := filepath.Join(dir, explicit)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("document %q: %w", explicit, err)
		}
		return path, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading persona directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isHidden(name) || name == connectors.DescriptorFile {
			continue
		}
		if connectors.IsDocumentFile(name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no reference document found", domain.ErrInvalidInput)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

// isHidden reports whether a file or directory name is hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
