package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedExtensions(t *testing.T) {
	normaliser := New()
	exts := normaliser.SupportedExtensions()

	require.NotEmpty(t, exts)
	assert.Contains(t, exts, ".md")
	assert.Contains(t, exts, ".markdown")
}

func TestPriority(t *testing.T) {
	normaliser := New()
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_Success(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	text, err := normaliser.Normalise(ctx, "persona.md", []byte("# Misir Ali\n\nA rationalist professor."))
	require.NoError(t, err)
	assert.Equal(t, "Misir Ali\n\nA rationalist professor.", text)
}

func TestNormalise_EmptyContent(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	text, err := normaliser.Normalise(ctx, "empty.md", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNormalise_WindowsLineEndings(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	text, err := normaliser.Normalise(ctx, "doc.md", []byte("# Title\r\n\r\nBody text."))
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nBody text.", text)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "headings removed",
			input:    "# Title\n## Subtitle\n### Third",
			expected: "Title\nSubtitle\nThird",
		},
		{
			name:     "bold removed",
			input:    "This is **bold** text",
			expected: "This is bold text",
		},
		{
			name:     "links converted",
			input:    "Click [here](https://example.com)",
			expected: "Click here",
		},
		{
			name:     "images removed",
			input:    "See ![alt text](image.png) here",
			expected: "See  here",
		},
		{
			name:     "code blocks removed",
			input:    "Before\n```go\ncode here\n```\nAfter",
			expected: "Before\n\nAfter",
		},
		{
			name:     "inline code removed",
			input:    "Use `code` here",
			expected: "Use  here",
		},
		{
			name:     "blockquotes cleaned",
			input:    "> This is a quote",
			expected: "This is a quote",
		},
		{
			name:     "list markers removed",
			input:    "- Item 1\n- Item 2",
			expected: "Item 1\nItem 2",
		},
		{
			name:     "numbered list markers removed",
			input:    "1. First\n2. Second",
			expected: "First\nSecond",
		},
		{
			name:     "excess blank lines collapsed",
			input:    "one\n\n\n\ntwo",
			expected: "one\n\ntwo",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := stripMarkdown(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestNormalise_ComplexMarkdown(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	complexMarkdown := `# Himu

## Appearance

Wears a **yellow** panjabi and *never* a wristwatch.

- Walks barefoot
- Speaks in riddles
  - Sometimes in questions

### Habits

` + "```" + `
internal notes, not part of the persona
` + "```" + `

[Reference](https://example.com)

![Portrait](himu.png)
`

	text, err := normaliser.Normalise(ctx, "himu.md", []byte(complexMarkdown))
	require.NoError(t, err)

	// Verify content is stripped of markdown
	assert.NotContains(t, text, "**yellow**")
	assert.Contains(t, text, "yellow")
	assert.NotContains(t, text, "[Reference]")
	assert.Contains(t, text, "Reference")
	assert.NotContains(t, text, "```")
	assert.NotContains(t, text, "internal notes")
	assert.NotContains(t, text, "himu.png")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func BenchmarkNormalise(b *testing.B) {
	normaliser := New()
	ctx := context.Background()

	data := []byte("# Test Document\n\nThis is test content with **bold** and *italic*.")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = normaliser.Normalise(ctx, "doc.md", data)
	}
}

func BenchmarkStripMarkdown(b *testing.B) {
	content := `# Heading

Paragraph with **bold** and *italic*.

- List item 1
- List item 2

[Link](https://example.com)

` + "```" + `
code block
` + "```"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = stripMarkdown(content)
	}
}
