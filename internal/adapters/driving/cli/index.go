package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// watchDebounce groups bursts of file events into one reindex. Editors
// routinely emit several writes per save.
const watchDebounce = 500 * time.Millisecond

var indexWatch bool

var indexCmd = &cobra.Command{
	Use:   "index [persona-id]",
	Short: "Build persona indexes",
	Long: `Chunks and embeds persona reference documents so retrieval can use
them. Without arguments every stored persona is indexed; indexes that are
current for the document version are reused, not rebuilt.

With --watch the command keeps running and reindexes personas as their
files change in the personas directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "reindex on file changes until interrupted")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := ensureAgent(ctx); err != nil {
		return err
	}
	if indexService == nil {
		return errors.New("index service not configured")
	}

	target := ""
	if len(args) == 1 {
		target = args[0]
	}

	if err := indexOnce(ctx, cmd, target); err != nil {
		return err
	}
	if !indexWatch {
		return nil
	}
	return watchAndReindex(ctx, cmd, target)
}

// indexOnce runs a single build pass for one persona or all of them.
func indexOnce(ctx context.Context, cmd *cobra.Command, target string) error {
	if target != "" {
		report, err := indexService.Index(ctx, target)
		if err != nil {
			return fmt.Errorf("indexing %q: %w", target, err)
		}
		printIndexReport(cmd, report)
		return nil
	}

	reports, err := indexService.IndexAll(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	if len(reports) == 0 {
		cmd.Println("No personas stored; nothing to index.")
		return nil
	}
	for i := range reports {
		printIndexReport(cmd, &reports[i])
	}
	return nil
}

// watchAndReindex blocks on the local source's event stream, reimporting
// and reindexing changed personas until the context is cancelled. Events
// arriving within the debounce window are coalesced into one pass.
func watchAndReindex(ctx context.Context, cmd *cobra.Command, target string) error {
	if localSource == nil || personaService == nil {
		return errors.New("persona source not configured")
	}

	events, err := localSource.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching personas directory: %w", err)
	}

	cmd.Println("Watching for persona changes. Press Ctrl+C to stop.")

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if target != "" && ev.PersonaID != target {
				continue
			}
			if ev.Type == domain.ChangeDeleted {
				cmd.Printf("Persona %s removed at source; stored copy kept.\n", ev.PersonaID)
				continue
			}
			pending[ev.PersonaID] = struct{}{}
			flush = time.After(watchDebounce)

		case <-flush:
			flush = nil
			ids := drainPending(pending)
			if err := reindexChanged(ctx, cmd, ids); err != nil {
				return err
			}
		}
	}
}

// reindexChanged imports the latest definitions and rebuilds the indexes of
// the personas that changed. Per-persona failures are reported and skipped
// so one broken document does not stop the watch.
func reindexChanged(ctx context.Context, cmd *cobra.Command, ids []string) error {
	if _, err := personaService.Import(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		cmd.Printf("Import failed: %v\n", err)
		return nil
	}

	for _, id := range ids {
		report, err := indexService.Index(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			cmd.Printf("Reindexing %s failed: %v\n", id, err)
			continue
		}
		printIndexReport(cmd, report)
	}
	return nil
}

func drainPending(pending map[string]struct{}) []string {
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
		delete(pending, id)
	}
	sort.Strings(ids)
	return ids
}

func printIndexReport(cmd *cobra.Command, report *driving.IndexReport) {
	if report.Reused {
		cmd.Printf("%s: index current (%d chunks, version %.12s)\n",
			report.PersonaID, report.Chunks, report.Version)
		return
	}
	cmd.Printf("%s: indexed %d chunks with %s (version %.12s",
		report.PersonaID, report.Chunks, report.EmbeddingModel, report.Version)
	if report.Dropped > 0 {
		cmd.Printf(", %d dropped", report.Dropped)
	}
	cmd.Println(")")
}
