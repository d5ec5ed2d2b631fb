package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/stack"
	"github.com/roach88/sitepipe/internal/testutil"
)

// createTestStore opens a fresh database under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDefinition synthesizes the fixture stack for label.
func createTestDefinition(t *testing.T, label string) *ir.Definition {
	t.Helper()
	def, err := stack.Synthesize(testutil.Stack(label), stack.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Synthesize() failed: %v", err)
	}
	return def
}

func createTestExecution(id, pipeline string, seq int64) ir.ExecutionRecord {
	return ir.ExecutionRecord{
		ID:               id,
		Pipeline:         pipeline,
		DefinitionDigest: "test-digest",
		Commit:           "abc123",
		State:            ir.StateRunning,
		StartedSeq:       seq,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
