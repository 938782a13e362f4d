package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPositionalArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantFile    string
		wantSeconds int
	}{
		{"no args keep flag values", nil, "default.html", 5},
		{"file only", []string{"snippet.html"}, "snippet.html", 5},
		{"file and wait seconds", []string{"snippet.html", "7"}, "snippet.html", 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			file, seconds, err := applyPositionalArgs(tc.args, "default.html", 5)
			require.NoError(t, err)
			assert.Equal(t, tc.wantFile, file)
			assert.Equal(t, tc.wantSeconds, seconds)
		})
	}
}

func TestApplyPositionalArgs_BadSeconds(t *testing.T) {
	_, _, err := applyPositionalArgs([]string{"snippet.html", "soon"}, "default.html", 0)
	assert.ErrorContains(t, err, "invalid wait seconds")
}
