package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

var (
	imageQuality string
	imageSize    string
	imageOut     string
)

var imageCmd = &cobra.Command{
	Use:   "image [prompt]",
	Short: "Generate an image from a prompt",
	Long: `Generates an image directly from a prompt, without the story pipeline.
Providers are tried in configured order; the placeholder provider renders
an SVG card when no real provider is reachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runImage,
}

func init() {
	imageCmd.Flags().StringVar(&imageQuality, "quality", "", "effort tier: standard, high or ultra")
	imageCmd.Flags().StringVar(&imageSize, "size", "", "aspect preset: square, portrait or landscape")
	imageCmd.Flags().StringVarP(&imageOut, "out", "o", "image.jpg", "output path")
	rootCmd.AddCommand(imageCmd)
}

func runImage(cmd *cobra.Command, args []string) error {
	prompt := args[0]

	ctx := cmd.Context()
	if err := ensureAgent(ctx); err != nil {
		return err
	}
	if storyAgent == nil {
		return errors.New("story agent not configured")
	}

	opts := domain.ImageOptions{
		Quality: domain.ImageQuality(imageQuality),
		Size:    domain.ImageSize(imageSize),
	}

	img, err := storyAgent.GenerateImage(ctx, prompt, opts)
	if err != nil {
		return fmt.Errorf("image generation failed: %w", err)
	}

	path := imagePathFor(imageOut, img.MIMEType)
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	cmd.Printf("Image saved to %s (%s, %dx%d, via %s)\n",
		path, img.MIMEType, img.Width, img.Height, img.Provider)
	return nil
}
