package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/player"
)

func testApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	var out bytes.Buffer
	a, err := newApp(&globalOptions{
		ConfigPath: filepath.Join(home, "config.json"),
		StoreDir:   filepath.Join(home, "flows"),
		Tab:        "main",
	}, &out)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, &out
}

func seed(t *testing.T, a *app, name, url string, actions flow.Actions) *flow.Record {
	t.Helper()
	rec, err := flow.NewRecord(name, url, actions)
	require.NoError(t, err)
	require.NoError(t, a.flows.Create(context.Background(), rec))
	return rec
}

func TestParseFlagsUsesEnvironment(t *testing.T) {
	t.Setenv(envStore, "/tmp/flows")
	t.Setenv(envHeadless, "true")

	opts, args := parseFlags([]string{"-tab", "work", "list", "-sort", "name"})
	assert.Equal(t, "/tmp/flows", opts.StoreDir)
	assert.True(t, opts.Headless)
	assert.Equal(t, "work", opts.Tab)
	assert.Equal(t, []string{"list", "-sort", "name"}, args)

	t.Setenv(envTab, "")
	opts, _ = parseFlags(nil)
	assert.Equal(t, "main", opts.Tab)
}

func TestUsageListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	usage(&buf)
	for name := range commands {
		assert.Contains(t, buf.String(), name)
	}
}

func TestLoadRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
continue_on_error: true
steps:
  - flow: Login
  - flow: abc
    url: https://example.com/settings
`), 0o600))

	f, err := loadRunFile(path)
	require.NoError(t, err)
	assert.True(t, f.ContinueOnError)
	require.Len(t, f.Steps, 2)
	assert.Equal(t, RunStep{Flow: "abc", URL: "https://example.com/settings"}, f.Steps[1])

	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - url: https://x\n"), 0o600))
	_, err = loadRunFile(path)
	assert.ErrorContains(t, err, "step 1: flow is required")

	require.NoError(t, os.WriteFile(path, []byte("steps: []\n"), 0o600))
	_, err = loadRunFile(path)
	assert.Error(t, err)

	_, err = loadRunFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestReportError(t *testing.T) {
	rec := &flow.Record{Name: "Login"}
	idx := 2
	assert.NoError(t, reportError(rec, player.Report{Completed: true}))
	assert.EqualError(t, reportError(rec, player.Report{FailedAtIndex: &idx, Error: "element not found"}),
		`"Login" failed at action 3: element not found`)
	assert.Error(t, reportError(rec, player.Report{Rejected: true}))
	assert.EqualError(t, reportError(rec, player.Report{Error: "boom"}), `"Login" failed: boom`)
}

func TestWriteJSONSource(t *testing.T) {
	var plain bytes.Buffer
	require.NoError(t, writeJSONSource(&plain, `{"a": 1}`, false))
	assert.Equal(t, "{\"a\": 1}\n", plain.String())

	var colored bytes.Buffer
	require.NoError(t, writeJSONSource(&colored, `{"a": 1}`, true))
	assert.Contains(t, colored.String(), "\x1b[")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestFlowCommands(t *testing.T) {
	a, out := testApp(t)
	ctx := context.Background()
	login := seed(t, a, "Login", "https://example.com/login", flow.Actions{flow.Focus{Base: flow.Base{Selector: "#u"}}})
	seed(t, a, "Checkout", "https://shop.org/cart", flow.Actions{})

	require.NoError(t, runList(ctx, a, []string{"-sort", "name"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Checkout")
	assert.Contains(t, lines[1], "1 actions")

	out.Reset()
	require.NoError(t, runShow(ctx, a, []string{"login"}))
	assert.Contains(t, out.String(), login.ID)

	out.Reset()
	require.NoError(t, runRename(ctx, a, []string{login.ID, "Sign in"}))
	assert.Equal(t, "Renamed \"Login\" to \"Sign in\"\n", out.String())

	require.NoError(t, runDuplicate(ctx, a, []string{"Sign in"}))

	exportPath := filepath.Join(t.TempDir(), "export.json")
	out.Reset()
	require.NoError(t, runExport(ctx, a, []string{"-o", exportPath}))
	assert.Equal(t, "Exported 3 flows to "+exportPath+"\n", out.String())

	require.NoError(t, runDelete(ctx, a, []string{login.ID}))
	out.Reset()
	require.NoError(t, runImport(ctx, a, []string{exportPath}))
	assert.Contains(t, out.String(), "Imported 1 flows")

	out.Reset()
	require.NoError(t, runStats(ctx, a, nil))
	assert.Contains(t, out.String(), "Flows:          3")

	assert.ErrorIs(t, runShow(ctx, a, nil), errUsage)
	assert.Error(t, runList(ctx, a, []string{"-sort", "size"}))
}
