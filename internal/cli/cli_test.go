package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: cli-click
document: |
  <html><body>
    <button id="go" hx-get="/hello" hx-target="#out">go</button>
    <div id="out"></div>
  </body></html>
routes:
  - method: GET
    path: /hello
    body: "<p>hi</p>"
steps:
  - event: click
    target: "#go"
  - wait: after-settle
`

func writeScenarioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli-click.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_RejectsBadFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "trace")
	assert.ErrorContains(t, err, "invalid format")
}

func TestRunCommand_ExecutesScenario(t *testing.T) {
	out, err := execute(t, "run", writeScenarioFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, "scenario cli-click")
	assert.Contains(t, out, "5 events")
}

func TestRunCommand_JSONOutput(t *testing.T) {
	out, err := execute(t, "--format", "json", "run", writeScenarioFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"scenario": "cli-click"`)
	assert.Contains(t, out, `"events": 5`)
}

func TestRunCommand_MissingScenario(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRecordedTraceReplaysClean(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")

	_, err := execute(t, "run", "--record", "--db", db, writeScenarioFile(t))
	require.NoError(t, err)

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "clean")
}

func TestTraceCommand_ListsSessions(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	_, err := execute(t, "run", "--record", "--db", db, writeScenarioFile(t))
	require.NoError(t, err)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "nope")))
}
