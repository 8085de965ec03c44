package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fabula/internal/connectors/filesystem"
	"github.com/custodia-labs/fabula/internal/connectors/github"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/core/services"
	"github.com/custodia-labs/fabula/internal/normalisers"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Manage character personas",
	Long:  `List, inspect, scaffold, import, or delete character personas.`,
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored personas",
	Args:  cobra.NoArgs,
	RunE:  runPersonasList,
}

var personasShowCmd = &cobra.Command{
	Use:   "show [persona-id]",
	Short: "Show one persona, reference document included",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonasShow,
}

var personasCreateCmd = &cobra.Command{
	Use:   "create [persona-id]",
	Short: "Scaffold a persona directory",
	Long: `Creates <personas-dir>/<persona-id>/ with a persona.toml and a starter
reference document. Edit both, then run 'fabula personas import'.`,
	Args: cobra.ExactArgs(1),
	RunE: runPersonasCreate,
}

var personasImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import personas from the local directory or a GitHub pack",
	Long: `Scans persona sources and stores new or changed definitions. Without
--from, the local personas directory is scanned. With --from, a persona
pack is fetched from GitHub instead:

  fabula personas import --from owner/repo
  fabula personas import --from owner/repo/packs/noir@v1.2.0`,
	Args: cobra.NoArgs,
	RunE: runPersonasImport,
}

var personasDeleteCmd = &cobra.Command{
	Use:   "delete [persona-id]",
	Short: "Delete a persona and its derived data",
	Long:  `Deletes the stored persona along with its index and cached responses.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonasDelete,
}

var (
	personaCreateName     string
	personaCreateGenre    string
	personaCreateVoice    string
	personaCreateTone     string
	personaCreateDocument string

	personaImportFrom  string
	personaImportToken string
)

func init() {
	personasCreateCmd.Flags().StringVarP(&personaCreateName, "name", "n", "", "display name (defaults to the persona ID)")
	personasCreateCmd.Flags().StringVar(&personaCreateGenre, "genre", "", "genre hint (e.g. \"detective fiction\")")
	personasCreateCmd.Flags().StringVar(&personaCreateVoice, "voice", "", "narrative voice: first_person, third_person or mixed")
	personasCreateCmd.Flags().StringVar(&personaCreateTone, "tone", "", "dialogue tone: casual, natural or formal")
	personasCreateCmd.Flags().StringVar(&personaCreateDocument, "document", "document.md", "reference document filename")

	personasImportCmd.Flags().StringVar(&personaImportFrom, "from", "", "GitHub pack reference (owner/repo[/path][@ref])")
	personasImportCmd.Flags().StringVar(&personaImportToken, "token", "", "GitHub token (defaults to the configured one)")

	personasCmd.AddCommand(personasListCmd)
	personasCmd.AddCommand(personasShowCmd)
	personasCmd.AddCommand(personasCreateCmd)
	personasCmd.AddCommand(personasImportCmd)
	personasCmd.AddCommand(personasDeleteCmd)
	rootCmd.AddCommand(personasCmd)
}

func runPersonasList(cmd *cobra.Command, _ []string) error {
	if personaService == nil {
		return errors.New("persona service not configured")
	}

	personas, err := personaService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}

	if len(personas) == 0 {
		cmd.Println("No personas stored.")
		if appSettings != nil {
			cmd.Printf("Add one under %s and run 'fabula personas import'.\n", appSettings.Personas.Dir)
		}
		return nil
	}

	cmd.Println("Personas:")
	cmd.Println()
	for i := range personas {
		p := &personas[i]
		cmd.Printf("  %s (%s)\n", p.ID, p.DisplayName)
		cmd.Printf("    Style: %s\n", describeStyle(p.Style))
		if p.UsageCount > 0 {
			cmd.Printf("    Used: %d stories, last %s\n",
				p.UsageCount, p.LastUsedAt.Format("2006-01-02 15:04"))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d personas\n", len(personas))
	return nil
}

func runPersonasShow(cmd *cobra.Command, args []string) error {
	if personaService == nil {
		return errors.New("persona service not configured")
	}

	personaID := args[0]
	persona, err := personaService.Get(cmd.Context(), personaID)
	if err != nil {
		return fmt.Errorf("failed to get persona: %w", err)
	}

	cmd.Printf("Persona: %s\n\n", persona.ID)
	cmd.Printf("  Name:     %s\n", persona.DisplayName)
	cmd.Printf("  Style:    %s\n", describeStyle(persona.Style))
	cmd.Printf("  Version:  %.12s\n", persona.DocVersion)
	cmd.Printf("  Created:  %s\n", persona.CreatedAt.Format("2006-01-02 15:04:05"))
	if persona.UsageCount > 0 {
		cmd.Printf("  Used:     %d stories, last %s\n",
			persona.UsageCount, persona.LastUsedAt.Format("2006-01-02 15:04:05"))
	}
	if persona.Params != nil {
		cmd.Printf("  Params:   temperature=%.2f top_p=%.2f top_k=%d max_tokens=%d\n",
			persona.Params.Temperature, persona.Params.TopP,
			persona.Params.TopK, persona.Params.MaxOutputTokens)
	}

	cmd.Printf("\n  Document (%d chars):\n\n", len(persona.Document))
	cmd.Println(indent(persona.Document, "    "))
	return nil
}

func runPersonasCreate(cmd *cobra.Command, args []string) error {
	personaID := args[0]
	if !domain.ValidPersonaID(personaID) {
		return fmt.Errorf("%w: persona ID must be a slug (lowercase letters, digits, - and _)",
			domain.ErrInvalidInput)
	}
	if appSettings == nil || appSettings.Personas.Dir == "" {
		return errors.New("personas directory not configured")
	}

	dir := filesystem.PersonaDir(appSettings.Personas.Dir, personaID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: persona directory %s", domain.ErrAlreadyExists, dir)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating persona directory: %w", err)
	}

	name := personaCreateName
	if name == "" {
		name = personaID
	}

	descriptorPath := filesystem.DescriptorPath(appSettings.Personas.Dir, personaID)
	if err := os.WriteFile(descriptorPath, renderDescriptor(name), 0o600); err != nil {
		return fmt.Errorf("writing persona.toml: %w", err)
	}

	docPath := filepath.Join(dir, personaCreateDocument)
	starter := fmt.Sprintf("# %s\n\nDescribe the character here: who they are, how they speak,\nwhat they believe, the world they live in.\n", name)
	if err := os.WriteFile(docPath, []byte(starter), 0o600); err != nil {
		return fmt.Errorf("writing reference document: %w", err)
	}

	cmd.Printf("Created persona %q:\n", personaID)
	cmd.Printf("  %s\n", descriptorPath)
	cmd.Printf("  %s\n", docPath)
	cmd.Println("\nEdit the reference document, then run: fabula personas import")
	return nil
}

// renderDescriptor produces the scaffolded persona.toml. Unset style fields
// are written as comments so the file documents its own options.
func renderDescriptor(displayName string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "display_name = %q\n", displayName)
	fmt.Fprintf(&b, "document = %q\n", personaCreateDocument)
	b.WriteString("\n[style]\n")
	writeStyleField(&b, "genre", personaCreateGenre, "detective fiction")
	writeStyleField(&b, "voice", personaCreateVoice, "first_person")
	writeStyleField(&b, "tone", personaCreateTone, "casual")
	b.WriteString(`
# Optional per-persona generation overrides:
# [params]
# temperature = 0.9
# max_output_tokens = 1024
`)
	return []byte(b.String())
}

func writeStyleField(b *strings.Builder, key, value, example string) {
	if value != "" {
		fmt.Fprintf(b, "%s = %q\n", key, value)
		return
	}
	fmt.Fprintf(b, "# %s = %q\n", key, example)
}

func runPersonasImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if personaImportFrom != "" {
		return importFromGitHub(cmd)
	}

	if personaService == nil {
		return errors.New("persona service not configured")
	}

	cmd.Println("Importing personas...")
	report, err := personaService.Import(ctx)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printImportReport(cmd, report.Created, report.Updated, report.Unchanged, report.Failed)
	return nil
}

// importFromGitHub imports a persona pack from a GitHub repository using a
// one-off source alongside the configured ones.
func importFromGitHub(cmd *cobra.Command) error {
	if dataStore == nil {
		return errors.New("persona store not configured")
	}

	ref, err := github.ParsePackRef(personaImportFrom)
	if err != nil {
		return err
	}

	token := personaImportToken
	if token == "" && appSettings != nil {
		token = appSettings.Personas.GitHubToken
	}

	source := github.New(ref, token, normalisers.DefaultRegistry())
	defer source.Close()

	cmd.Printf("Importing persona pack from %s...\n", ref.String())

	importer := services.NewPersonaService(
		dataStore.PersonaStore(),
		[]driven.PersonaSource{source},
		changeRelay{},
	)
	report, err := importer.Import(cmd.Context())
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printImportReport(cmd, report.Created, report.Updated, report.Unchanged, report.Failed)
	return nil
}

func printImportReport(cmd *cobra.Command, created, updated, unchanged int, failed []string) {
	cmd.Printf("Import complete: %d created, %d updated, %d unchanged.\n",
		created, updated, unchanged)
	for _, failure := range failed {
		cmd.Printf("  failed: %s\n", failure)
	}
}

func runPersonasDelete(cmd *cobra.Command, args []string) error {
	if personaService == nil {
		return errors.New("persona service not configured")
	}

	personaID := args[0]
	ctx := cmd.Context()

	persona, err := personaService.Get(ctx, personaID)
	if err != nil {
		return fmt.Errorf("persona not found: %w", err)
	}

	if err := personaService.Remove(ctx, personaID); err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}

	cmd.Printf("Deleted persona %s (%s) with its index and cached responses.\n",
		persona.ID, persona.DisplayName)
	return nil
}

// describeStyle renders style directives on one line.
func describeStyle(style domain.StyleDirectives) string {
	parts := make([]string, 0, 3)
	if style.Genre != "" {
		parts = append(parts, style.Genre)
	}
	parts = append(parts, string(style.Voice), string(style.Tone))
	return strings.Join(parts, ", ")
}

// indent prefixes every line of text.
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
