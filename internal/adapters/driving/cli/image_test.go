package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

func TestImageCmd_Use(t *testing.T) {
	assert.Equal(t, "image [prompt]", imageCmd.Use)
}

func TestImageCmd_Short(t *testing.T) {
	assert.Equal(t, "Generate an image from a prompt", imageCmd.Short)
}

func TestImageCmd_RequiresPrompt(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"image"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestImageCmd_HasFlags(t *testing.T) {
	for _, name := range []string{"quality", "size", "out"} {
		assert.NotNil(t, imageCmd.Flags().Lookup(name), "flag %s should exist", name)
	}

	flag := imageCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "image.jpg", flag.DefValue)
}

func TestImageCmd_Executes(t *testing.T) {
	cleanup := setupAgentTest(&mockStoryAgent{
		image: &domain.Image{
			Data:     []byte("fake-jpeg-bytes"),
			MIMEType: "image/jpeg",
			Provider: "pollinations",
			Width:    1024,
			Height:   1024,
		},
	})
	defer cleanup()

	out := filepath.Join(t.TempDir(), "story.jpg")
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"image", "a rickshaw in the rain", "--out", out})
	defer func() {
		rootCmd.SetArgs(nil)
		imageOut = "image.jpg"
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Image saved to "+out)
	assert.Contains(t, buf.String(), "image/jpeg, 1024x1024, via pollinations")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-jpeg-bytes"), data)
}

func TestImageCmd_AlignsExtensionWithEncoding(t *testing.T) {
	cleanup := setupAgentTest(&mockStoryAgent{
		image: &domain.Image{
			Data:     []byte("<svg/>"),
			MIMEType: "image/svg+xml",
			Provider: "placeholder",
			Width:    1024,
			Height:   1024,
		},
	})
	defer cleanup()

	out := filepath.Join(t.TempDir(), "story.jpg")
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"image", "a rickshaw in the rain", "--out", out})
	defer func() {
		rootCmd.SetArgs(nil)
		imageOut = "image.jpg"
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	svgPath := filepath.Join(filepath.Dir(out), "story.svg")
	assert.Contains(t, buf.String(), "Image saved to "+svgPath)
	_, err = os.Stat(svgPath)
	assert.NoError(t, err)
}

func TestImageCmd_GenerationFails(t *testing.T) {
	cleanup := setupAgentTest(&mockStoryAgent{imageErr: errors.New("all providers failed")})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"image", "a rickshaw in the rain"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "image generation failed")
}
