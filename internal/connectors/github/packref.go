package github

import (
	"fmt"
	"strings"
)

// PackRef addresses a persona pack inside a GitHub repository.
type PackRef struct {
	// Owner is the repository owner (user or organisation).
	Owner string

	// Repo is the repository name.
	Repo string

	// Path is the directory inside the repository holding the persona
	// directories. Empty means the repository root.
	Path string

	// Ref is the git ref (branch, tag, or commit SHA). Empty means the
	// repository's default branch.
	Ref string
}

// ParsePackRef parses a pack reference of the form
// owner/repo[/path][@ref]. A "github:" scheme or "https://github.com/"
// prefix is tolerated.
func ParsePackRef(s string) (PackRef, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "github:")
	trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	trimmed = strings.Trim(trimmed, "/")

	if trimmed == "" {
		return PackRef{}, fmt.Errorf("%w: %q", ErrInvalidPackRef, s)
	}

	var ref string
	if at := strings.LastIndex(trimmed, "@"); at != -1 {
		ref = trimmed[at+1:]
		trimmed = trimmed[:at]
		if ref == "" {
			return PackRef{}, fmt.Errorf("%w: %q has an empty ref", ErrInvalidPackRef, s)
		}
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return PackRef{}, fmt.Errorf("%w: %q needs owner/repo", ErrInvalidPackRef, s)
	}
	for _, part := range parts {
		if part == "" {
			return PackRef{}, fmt.Errorf("%w: %q has an empty path segment", ErrInvalidPackRef, s)
		}
	}

	return PackRef{
		Owner: parts[0],
		Repo:  parts[1],
		Path:  strings.Join(parts[2:], "/"),
		Ref:   ref,
	}, nil
}

// String renders the reference back to owner/repo[/path][@ref] form.
func (r PackRef) String() string {
	var b strings.Builder
	b.WriteString(r.Owner)
	b.WriteString("/")
	b.WriteString(r.Repo)
	if r.Path != "" {
		b.WriteString("/")
		b.WriteString(r.Path)
	}
	if r.Ref != "" {
		b.WriteString("@")
		b.WriteString(r.Ref)
	}
	return b.String()
}
