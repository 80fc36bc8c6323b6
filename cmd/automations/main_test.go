package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/automations/constants"
	"github.com/joseph-ayodele/automations/internal/async"
	"github.com/joseph-ayodele/automations/internal/automation"
	"github.com/joseph-ayodele/automations/internal/repository"
	"github.com/joseph-ayodele/automations/internal/server"
)

type nopQueue struct{}

func (nopQueue) Enqueue(context.Context, async.Job) error { return nil }
func (nopQueue) Shutdown(context.Context)                 {}

// startGateway serves the reference gateway over an in-memory store and returns its URL and a
// runner for processing jobs on demand.
func startGateway(t *testing.T) (string, *async.Runner) {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })

	repo := repository.NewJobRepository(db, nil)
	registry := automation.DefaultRegistry()
	svc := server.NewJobService(repo, registry, nopQueue{}, nil, nil)
	srv := httptest.NewServer(server.NewRouter(svc, nil, nil))
	t.Cleanup(srv.Close)
	return srv.URL, async.NewRunner(repo, registry, nil)
}

func writeWorkbook(t *testing.T, n int) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	header := []any{"cedula", "nombre"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i := 0; i < n; i++ {
		row := []any{fmt.Sprintf("20%02d", i), fmt.Sprintf("Persona %d", i)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "casos.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

var jobIDPattern = regexp.MustCompile(`uploaded job (\S+)`)

func TestPreview(t *testing.T) {
	path := writeWorkbook(t, 3)

	out, err := execute(t, "preview", path, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `sheet "Sheet1": 3 rows`)
	assert.Contains(t, out, "Persona 1")
	assert.NotContains(t, out, "Persona 2")
}

func TestUpload_RequiresUser(t *testing.T) {
	_, err := execute(t, "upload", writeWorkbook(t, 1), "--gateway", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "user" not set`)
}

func TestUnknownKind(t *testing.T) {
	_, err := execute(t, "jobs", "--gateway", "http://127.0.0.1:1", "--kind", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown automation kind")
}

func TestKindFlag_ListsEveryKind(t *testing.T) {
	usage := rootCmd.PersistentFlags().Lookup("kind").Usage
	for _, k := range constants.KindsAsStringSlice() {
		assert.Contains(t, usage, k)
	}
}

func TestVerbose_LogsGateway(t *testing.T) {
	url, _ := startGateway(t)

	out, err := execute(t, "jobs", "--gateway", url+"/", "--kind", "rues", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "msg=cli.gateway base_url="+url+" kind=rues")
}

func TestJobLifecycle(t *testing.T) {
	url, runner := startGateway(t)
	base := []string{"--gateway", url, "--kind", "legal"}
	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, append(args, base...)...)
		require.NoError(t, err, out)
		return out
	}

	out := run("upload", writeWorkbook(t, 4), "--user", "9")
	m := jobIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	jobID := m[1]

	out = run("refresh", jobID, "--initial", "--no-bar")
	assert.Contains(t, out, "0/4 rows (0%)")

	out = run("pause", jobID)
	assert.Contains(t, out, "pause sent for job "+jobID)
	assert.Contains(t, out, "job "+jobID+" status PAUSED")
	assert.Empty(t, tracker.LastPaused(), "the listing reconciles the optimistic flag")
	out = run("resume", jobID)
	assert.Contains(t, out, "gateway answered 200")
	assert.Contains(t, out, "job "+jobID+" status RUNNING")

	_, err := runner.Run(context.Background(), jobID)
	require.NoError(t, err)

	out = run("refresh", jobID, "--no-bar")
	assert.Contains(t, out, "4/4 rows (100%)")
	assert.Contains(t, out, "completion notification sent")

	out = run("refresh", jobID, "--no-bar", "--total", "0")
	assert.Contains(t, out, "0/0 rows (0%)")
	assert.NotContains(t, out, "complete")

	out = run("jobs", "--limit", "5")
	assert.Contains(t, out, "casos.xlsx")
	assert.Contains(t, out, "1 of 1 jobs")

	sheet := filepath.Join(t.TempDir(), "page.xlsx")
	out = run("details", jobID, "--page-size", "2", "--page", "2", "--xlsx", sheet)
	assert.Contains(t, out, "Persona 3")
	assert.Contains(t, out, "source server")
	assert.FileExists(t, sheet)

	target := filepath.Join(t.TempDir(), "out.xlsx")
	run("export", jobID, "--out", target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Legal")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestPause_UnknownJobNotListed(t *testing.T) {
	url, _ := startGateway(t)

	out, err := execute(t, "pause", "missing", "--gateway", url, "--kind", "legal")
	require.NoError(t, err, out)
	assert.Contains(t, out, "gateway answered 404")
	assert.Contains(t, out, "job missing is not in the legal job list")
	assert.Equal(t, "missing", tracker.LastPaused(), "only a listing that shows the job clears the flag")
	tracker.MarkResumed("missing")
}

func TestOutreach_NotConfigured(t *testing.T) {
	t.Setenv("OUTREACH_BASE_URL", "")
	t.Setenv("OUTREACH_API_KEY", "")

	_, err := execute(t, "outreach", "campaigns", "--gateway", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outreach provider not configured")
}
