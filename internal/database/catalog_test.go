package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeEscaper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain brand untouched", "GLORIA", "GLORIA"},
		{"percent escaped", "100% NATURAL", `100\% NATURAL`},
		{"underscore escaped", "SAN_JORGE", `SAN\_JORGE`},
		{"backslash escaped first", `A\B`, `A\\B`},
		{"wildcard-only noise matches nothing extra", "%_%", `\%\_\%`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, likeEscaper.Replace(tt.input))
		})
	}
}
