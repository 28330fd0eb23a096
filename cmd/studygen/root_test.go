package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	for _, c := range cmd.Commands() {
		c.SetOut(&stdout)
		c.SetErr(&stderr)
	}
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	t.Parallel()
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"analyze", "flashcards", "mcqs", "extract", "status"} {
		assert.Contains(t, names, want)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	t.Parallel()
	_, _, err := run(t, "status", "missing-job", "--store", "memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-job")
}

func TestExtractRejectsNonPDF(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o600))

	_, _, err := run(t, "extract", "--pdf", path, "--store", "memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid PDF file content")
}

func TestGenerateRequiresFile(t *testing.T) {
	t.Parallel()
	_, _, err := run(t, "flashcards", "--count", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}
