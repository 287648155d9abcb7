package prune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide_Defaults(t *testing.T) {
	p, err := New(Options{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		relPath string
		isDir   bool
		want    Decision
	}{
		{"dot file", ".env", false, Decision{false, ReasonDot}},
		{"dot directory", ".git", true, Decision{false, ReasonDot}},
		{"at prefix", "@tmp", false, Decision{false, ReasonTemporary}},
		{"tilde suffix", "backup~", false, Decision{false, ReasonTemporary}},
		{"temporary directory", "@eaDir", true, Decision{false, ReasonTemporary}},
		{"compiled python", "module.pyc", false, Decision{false, ReasonGeneratedFile}},
		{"optimized python", "sub/module.pyo", false, Decision{false, ReasonGeneratedFile}},
		{"generated directory", "pkg/__pycache__", true, Decision{false, ReasonGeneratedDir}},
		{"generated dir name as file is kept", "__pycache__", false, Decision{true, ReasonPending}},
		{"generated suffix on directory is kept", "weird.pyc", true, Decision{true, ReasonPending}},
		{"regular file", "a.txt", false, Decision{true, ReasonPending}},
		{"regular nested file", "docs/a.txt", false, Decision{true, ReasonPending}},
		{"regular directory", "docs", true, Decision{true, ReasonPending}},
		{"dot wins over tilde", ".swp~", false, Decision{false, ReasonDot}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Decide(tt.relPath, tt.isDir))
		})
	}
}

func TestDecide_InjectedSets(t *testing.T) {
	p, err := New(Options{
		GeneratedFiles: []string{"*.class", "*.o"},
		GeneratedDirs:  []string{"target", "node_modules"},
		Excludes:       []string{"secret/**", "**/*.log"},
	})
	require.NoError(t, err)

	tests := []struct {
		relPath string
		isDir   bool
		want    Decision
	}{
		{"Main.class", false, Decision{false, ReasonGeneratedFile}},
		{"lib/x.o", false, Decision{false, ReasonGeneratedFile}},
		{"module.pyc", false, Decision{true, ReasonPending}},
		{"target", true, Decision{false, ReasonGeneratedDir}},
		{"web/node_modules", true, Decision{false, ReasonGeneratedDir}},
		{"__pycache__", true, Decision{true, ReasonPending}},
		{"secret/key.pem", false, Decision{false, ReasonExcluded}},
		{"app/run.log", false, Decision{false, ReasonExcluded}},
		{"app/run.txt", false, Decision{true, ReasonPending}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Decide(tt.relPath, tt.isDir), "Decide(%q, %v)", tt.relPath, tt.isDir)
	}
}

func TestNew_EmptySetsDisableDefaults(t *testing.T) {
	p, err := New(Options{GeneratedFiles: []string{}, GeneratedDirs: []string{}})
	require.NoError(t, err)

	assert.True(t, p.Decide("module.pyc", false).Keep)
	assert.True(t, p.Decide("__pycache__", true).Keep)
	assert.False(t, p.Decide(".env", false).Keep, "dot rule is not configurable")
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(Options{Excludes: []string{"[abc"}})
	assert.Error(t, err)

	_, err = New(Options{GeneratedFiles: []string{"{a,b"}})
	assert.Error(t, err)
}
