package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCheck(t *testing.T) {
	color.NoColor = true
	path := writeProject(t, `
objects:
  - name: obj_a
    events:
      - {event: Create, code: "x = 1"}
rooms:
  - name: rm_main
    instances: [{x: 0, y: 0, object: obj_a}]
`)
	var out bytes.Buffer
	require.NoError(t, checkCommand([]string{"-config", "", path}, &out))
	assert.Equal(t, "game: ok, 1 unit(s)\n", out.String())
}

func TestCheckReportsDiagnostics(t *testing.T) {
	color.NoColor = true
	path := writeProject(t, `
objects:
  - name: obj_a
    events:
      - {event: Create, code: "x = = 1"}
rooms: [{name: rm_main}]
`)
	var out bytes.Buffer
	err := checkCommand([]string{"-config", "", "-json", path}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), `"unit": "obj_a.Create"`)
	assert.Contains(t, out.String(), `"line": 1`)
}

func TestDisasm(t *testing.T) {
	path := writeProject(t, `
scripts:
  - {name: scr_one, code: "return 1"}
rooms: [{name: rm_main, code: "score = 2"}]
`)
	var out bytes.Buffer
	require.NoError(t, disasmCommand([]string{"-config", "", "-unit", "scr_one", path}, &out))
	assert.Contains(t, out.String(), "scr_one")
	assert.NotContains(t, out.String(), "rm_main")
}

func TestProjectArgument(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, checkCommand([]string{"-config", ""}, &out))
}
