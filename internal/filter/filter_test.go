package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileCardFilter(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{"state equality", `state == "REVIEW"`, false},
		{"overdue threshold", `overdue_days > 2.0`, false},
		{"compound", `state == "RELEARNING" && lapses >= 3`, false},
		{"retention band", `retention < 0.5 || difficulty > 8.0`, false},
		{"not boolean", `reps + 1`, true},
		{"unknown variable", `color == "red"`, true},
		{"syntax error", `state ==`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCardFilter(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCardFilterMatches(t *testing.T) {
	f, err := CompileCardFilter(`state == "REVIEW" && overdue_days > 2.0`)
	require.NoError(t, err)

	matched, err := f.Matches(map[string]any{
		"state":        "REVIEW",
		"reps":         5,
		"lapses":       0,
		"stability":    12.0,
		"difficulty":   4.2,
		"overdue_days": 3.5,
		"retention":    0.82,
	})
	require.NoError(t, err)
	require.True(t, matched)

	matched, err = f.Matches(map[string]any{
		"state":        "LEARNING",
		"reps":         1,
		"lapses":       0,
		"stability":    0.5,
		"difficulty":   5.0,
		"overdue_days": 10.0,
		"retention":    0.3,
	})
	require.NoError(t, err)
	require.False(t, matched)
}
