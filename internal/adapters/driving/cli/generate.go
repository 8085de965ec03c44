package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

var (
	generateJSON        bool
	generateNoCache     bool
	generateWithImage   bool
	generateImageOut    string
	generateTemperature float64
	generateMaxTokens   int
)

var generateCmd = &cobra.Command{
	Use:   "generate [persona-id] [idea]",
	Short: "Generate a story in a persona's voice",
	Long: `Generates a short story from a one-line idea, told in the persona's
voice and grounded in its reference document. The persona's index is built
on first use and reused afterwards.`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "output the result as JSON")
	generateCmd.Flags().BoolVar(&generateNoCache, "no-cache", false, "bypass the response cache")
	generateCmd.Flags().BoolVar(&generateWithImage, "image", false, "also generate an image from the derived prompt")
	generateCmd.Flags().StringVar(&generateImageOut, "image-out", "story.jpg", "image output path (with --image)")
	generateCmd.Flags().Float64Var(&generateTemperature, "temperature", 0, "sampling temperature (overrides persona parameters)")
	generateCmd.Flags().IntVar(&generateMaxTokens, "max-tokens", 0, "maximum output tokens (overrides persona parameters)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	personaID, idea := args[0], args[1]

	ctx := cmd.Context()
	if err := ensureAgent(ctx); err != nil {
		return err
	}
	if storyAgent == nil {
		return errors.New("story agent not configured")
	}

	session := storyAgent.NewSession()
	if err := storyAgent.LoadPersona(ctx, session, personaID); err != nil {
		return fmt.Errorf("loading persona %q: %w", personaID, err)
	}

	opts := driving.GenerateOptions{
		SkipCache: generateNoCache,
		Params:    generateParamOverride(cmd),
	}

	result, err := storyAgent.Generate(ctx, session, idea, opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if generateJSON {
		if err := outputGenerateJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputGenerateText(cmd, result)
	}

	if generateWithImage && result.ImagePrompt != "" {
		return saveGeneratedImage(cmd, result.ImagePrompt)
	}
	return nil
}

// generateParamOverride builds the whole-struct parameter override from the
// set flags, or nil when none were given. The override replaces the
// persona's own parameters, so unset fields fall back to the configured
// defaults rather than to the persona.
func generateParamOverride(cmd *cobra.Command) *domain.GenerationParams {
	if !cmd.Flags().Changed("temperature") && !cmd.Flags().Changed("max-tokens") {
		return nil
	}

	params := domain.DefaultGenerationParams()
	if appSettings != nil && appSettings.Generation.Params != (domain.GenerationParams{}) {
		params = appSettings.Generation.Params
	}
	if cmd.Flags().Changed("temperature") {
		params.Temperature = generateTemperature
	}
	if cmd.Flags().Changed("max-tokens") {
		params.MaxOutputTokens = generateMaxTokens
	}
	return &params
}

func outputGenerateJSON(cmd *cobra.Command, result *domain.GenerationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputGenerateText(cmd *cobra.Command, result *domain.GenerationResult) {
	cmd.Println(result.Story)
	cmd.Println()
	if result.ImagePrompt != "" {
		cmd.Printf("Image prompt: %s\n", result.ImagePrompt)
	}
	cmd.Printf("Model: %s (%d in / %d out tokens)\n",
		result.ModelName, result.InputTokens, result.OutputTokens)
	if len(result.Tags) > 0 {
		cmd.Printf("Tags: %s\n", strings.Join(result.Tags, ", "))
	}
}

// saveGeneratedImage renders the derived image prompt and writes the image
// next to the terminal output.
func saveGeneratedImage(cmd *cobra.Command, prompt string) error {
	img, err := storyAgent.GenerateImage(cmd.Context(), prompt, domain.ImageOptions{})
	if err != nil {
		return fmt.Errorf("image generation failed: %w", err)
	}

	path := imagePathFor(generateImageOut, img.MIMEType)
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	cmd.Printf("Image saved to %s (%s, %dx%d, via %s)\n",
		path, img.MIMEType, img.Width, img.Height, img.Provider)
	return nil
}

// imagePathFor aligns the output file extension with the image encoding the
// provider actually returned.
func imagePathFor(path, mimeType string) string {
	ext := extensionForMIME(mimeType)
	if ext == "" {
		return path
	}
	if strings.HasSuffix(strings.ToLower(path), ext) {
		return path
	}
	if i := strings.LastIndex(path, "."); i > 0 {
		return path[:i] + ext
	}
	return path + ext
}

func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
