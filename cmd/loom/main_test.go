package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "help is a clean exit")
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, &bytes.Buffer{}, nil)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_UnknownFlag(t *testing.T) {
	t.Parallel()

	err := run(&bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	workflow := `
function "fibonacci_number" {
  params = ["n"]

  depends {
    f_a = n > 1 ? fibonacci_number(n - 1) : 0
    f_b = n > 1 ? fibonacci_number(n - 2) : 0
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fib.hcl"), []byte(workflow), 0600))

	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	err := run(out, logs, []string{"-log-level", "error", dir, "fibonacci_number(10)"})

	require.NoError(t, err)
	assert.Equal(t, "55", strings.TrimSpace(out.String()))
}

func TestRun_BrokenWorkflow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hcl"), []byte(`function "x" {`), 0600))

	err := run(&bytes.Buffer{}, &bytes.Buffer{}, []string{dir, "x(1)"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
