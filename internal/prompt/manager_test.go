package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"quill/internal/phase"
)

func TestPhasePromptNeverEmpty(t *testing.T) {
	// No prompts directory at all: defaults must cover every phase.
	m := NewManager(filepath.Join(t.TempDir(), "missing"), zaptest.NewLogger(t))

	for _, p := range phase.All() {
		assert.NotEmpty(t, m.PhasePrompt(p), "phase %s", p)
	}
}

func TestUnknownNameFallsBackToBase(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), zaptest.NewLogger(t))

	assert.Equal(t, m.Get(BaseName), m.Get("functions.summarize"))
}

func TestFileOverride(t *testing.T) {
	dir := t.TempDir()
	phasesDir := filepath.Join(dir, "phases")
	require.NoError(t, os.MkdirAll(phasesDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(phasesDir, "refinement.txt"),
		[]byte("Custom refinement instructions."),
		0644,
	))

	m := NewManager(dir, zaptest.NewLogger(t))

	assert.Equal(t, "Custom refinement instructions.", m.PhasePrompt(phase.Refinement))
	// Phases without override files keep their defaults.
	assert.Contains(t, m.PhasePrompt(phase.ContextGathering), "Context Gathering phase")
}

func TestWriteDefaultsThenLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefaults(dir))

	for _, name := range []string{
		"base.txt",
		filepath.Join("phases", "context_gathering.txt"),
		filepath.Join("phases", "structure_development.txt"),
		filepath.Join("phases", "content_development.txt"),
		filepath.Join("phases", "refinement.txt"),
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	m := NewManager(dir, zaptest.NewLogger(t))
	for _, p := range phase.All() {
		assert.NotEmpty(t, m.PhasePrompt(p))
	}
}

func TestWriteDefaultsKeepsEdits(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefaults(dir))

	edited := filepath.Join(dir, "base.txt")
	require.NoError(t, os.WriteFile(edited, []byte("my edit"), 0644))
	require.NoError(t, WriteDefaults(dir))

	data, err := os.ReadFile(edited)
	require.NoError(t, err)
	assert.Equal(t, "my edit", string(data))
}
