package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui"
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:   "chat [persona-id]",
	Short: "Launch an interactive story session",
	Long: `Launch the interactive terminal interface for story sessions.

With a persona ID the session opens directly; without one a picker lists
the stored personas. Type an idea, press enter, and the story is written
in the persona's voice.

Controls:
  Enter    - Generate a story from the idea
  n        - Start a new idea
  d        - View the persona's reference document
  ↑/k, ↓/j - Scroll / navigate
  Esc      - Back
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if err := ensureAgent(cmd.Context()); err != nil {
		return err
	}

	ports := &tui.Ports{
		Agent:    storyAgent,
		Personas: personaService,
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	app.WithContext(cmd.Context())

	if len(args) == 1 {
		app.SetPersona(args[0])
	}

	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
