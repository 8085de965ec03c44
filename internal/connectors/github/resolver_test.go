package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebURL(t *testing.T) {
	tests := []struct {
		name      string
		ref       PackRef
		personaID string
		want      string
	}{
		{
			name:      "repo root with explicit ref",
			ref:       PackRef{Owner: "custodia-labs", Repo: "persona-packs", Ref: "main"},
			personaID: "himu",
			want:      "https://github.com/custodia-labs/persona-packs/tree/main/himu",
		},
		{
			name:      "default branch uses HEAD",
			ref:       PackRef{Owner: "custodia-labs", Repo: "persona-packs"},
			personaID: "himu",
			want:      "https://github.com/custodia-labs/persona-packs/tree/HEAD/himu",
		},
		{
			name:      "pack path included",
			ref:       PackRef{Owner: "o", Repo: "r", Path: "packs/detectives", Ref: "v2"},
			personaID: "misir-ali",
			want:      "https://github.com/o/r/tree/v2/packs/detectives/misir-ali",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WebURL(tt.ref, tt.personaID))
		})
	}
}
