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

const manifest = `[
  {"path": "lib/main.dart", "content": "// entry\n\nvoid main() {}\n", "dependencies": ["lib/app.dart"]},
  {"path": "lib/app.dart", "content": "class App {}\n", "dependencies": ["lib/ghost.dart"]}
]`

func TestRunCLI_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "gen")
	var stdout, stderr bytes.Buffer

	code := runCLI([]string{"-manifest", "-", "-out", out, "-run", "demo"}, strings.NewReader(manifest), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	raw, err := os.ReadFile(filepath.Join(out, "demo", "lib", "main.dart"))
	require.NoError(t, err)
	assert.Equal(t, "// entry\nimport 'app.dart';\n\nvoid main() {}\n", string(raw))

	assert.Contains(t, stdout.String(), "run: demo")
	assert.Contains(t, stdout.String(), "lib/app.dart -> lib/ghost.dart")
	assert.Contains(t, stdout.String(), "wrote 2 files")
}

func TestRunCLI_StrictFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"artifacts": `+manifest+`}`), 0o644))
	var stdout, stderr bytes.Buffer

	code := runCLI([]string{"-manifest", path, "-out", t.TempDir(), "-strict"}, nil, &stdout, &stderr)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr.String(), "missing dependenc")
}

func TestRunCLI_Cycle(t *testing.T) {
	cyclic := `[{"path":"a","dependencies":["b"]},{"path":"b","dependencies":["a"]}]`
	var stdout, stderr bytes.Buffer

	code := runCLI([]string{"-manifest", "-", "-out", t.TempDir()}, strings.NewReader(cyclic), &stdout, &stderr)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr.String(), "cycle: a -> b -> a")
}

func TestRunCLI_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, runCLI(nil, nil, &stdout, &stderr))
	assert.Equal(t, exitUsage, runCLI([]string{"-manifest", "-"}, strings.NewReader("{not json"), &stdout, &stderr))
	assert.Equal(t, exitUsage, runCLI([]string{"-manifest", "-", "-import-style", "x"}, strings.NewReader(manifest), &stdout, &stderr))
}
