package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"abcdreport/internal/analysis"
	"abcdreport/internal/config"
	"abcdreport/internal/domain"
	"abcdreport/internal/integrations/llm"
	"abcdreport/internal/roster"
	"abcdreport/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topic = "D-1 Set-1 Matrix"

var dayDocs = map[string]string{
	"2025-07-01": `
user: alice
date: 2025-07-01
hours: {1: Su}
sets:
  D-1 Set-1 Matrix:
    Lagna: {Su: "as-7-/su-(10 Sc 03)"}
    Moon: {Su: "mo-3-/su-(01 Ar 00)"}
`,
	"2025-07-02": `
user: alice
date: 2025-07-02
hours: {1: Su}
sets:
  D-1 Set-1 Matrix:
    Lagna: {Su: "as-7-/su-(11 Sc 40)"}
    Moon: {Su: "mo-5-/su-(14 Ar 12)"}
`,
	"2025-07-03": `
user: alice
date: 2025-07-03
hours: {1: Su}
sets:
  D-1 Set-1 Matrix:
    Lagna: {Su: "as-2-/su-(12 Sc 55)"}
`,
	"2025-07-04": `
user: alice
date: 2025-07-04
hours: {1: Su, 2: ""}
sets:
  D-1 Set-1 Matrix:
    Lagna: {Su: "as-7-/su-(13 Sc 20)"}
    Moon: {Su: "mo-5-/su-(27 Ar 02)"}
    Hora Lagna: {Su: "hl-2-/su-(03 Ta 11)"}
    Ghati Lagna: {Su: "gl-3-/su-(19 Ge 48)"}
`,
}

func writeDocs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, key := range []string{"2025-07-01", "2025-07-02", "2025-07-03", "2025-07-04"} {
		p := filepath.Join(dir, key+".yaml")
		require.NoError(t, os.WriteFile(p, []byte(dayDocs[key]), 0o644))
		paths = append(paths, p)
	}
	return paths
}

type fakeNarrator struct {
	text string
	err  error
}

func (f fakeNarrator) Narrate(context.Context, domain.Run) (string, llm.LLMUsage, error) {
	return f.text, llm.LLMUsage{}, f.err
}

type fakeNotifier struct {
	runs  []domain.Run
	paths []string
	err   error
}

func (f *fakeNotifier) PostRun(run domain.Run, path string) error {
	f.runs = append(f.runs, run)
	f.paths = append(f.paths, path)
	return f.err
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Service{
		DB:        db,
		Runner:    analysis.NewRunner(roster.Default(), 2, nil),
		Defaults:  roster.NoDefaults,
		OutputDir: t.TempDir(),
	}
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDayKey(s)
	require.NoError(t, err)
	return d
}

func TestServiceImportAndDates(t *testing.T) {
	svc := newTestService(t)
	results, err := svc.Import("", writeDocs(t))
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 4, results[3].Cells)
	assert.Equal(t, 1, results[3].Hours, "blank planet is not an hour")

	all, eligible, err := svc.Dates("alice")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	require.Len(t, eligible, 1)
	assert.Equal(t, "2025-07-04", domain.DayKey(eligible[0]))
}

func TestServiceAnalyze(t *testing.T) {
	svc := newTestService(t)
	notifier := &fakeNotifier{}
	svc.Notifier = notifier
	svc.Narrator = fakeNarrator{text: "Lagna carries the day."}
	_, err := svc.Import("", writeDocs(t))
	require.NoError(t, err)

	out, err := svc.Analyze(context.Background(), "alice", mustDay(t, "2025-07-04"), 0)
	require.NoError(t, err)

	assert.Equal(t, "A=2025-07-01 B=2025-07-02 C=2025-07-03 D=2025-07-04", out.Run.Sequence.String())
	require.Len(t, out.Run.Hours, 1)
	hour := out.Run.Hours[0]
	assert.Equal(t, []string{topic}, hour.Order, "only topics present on D are analysed")
	res := hour.Topics[topic]
	assert.Equal(t, []int{7}, res.ABCD)
	assert.Equal(t, []int{2, 5}, res.BCD)
	assert.Equal(t, []int{3}, res.Unqualified())
	assert.Equal(t, "75.0", res.Summary.RateString())

	data, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, "alice_20250704.md", filepath.Base(out.ReportPath))
	assert.Contains(t, string(data), "- **D-1 Set-1 Matrix** ABCD: 7 | BCD: 2, 5")
	assert.Contains(t, string(data), "Lagna carries the day.")

	require.Len(t, notifier.runs, 1)
	assert.Equal(t, out.ReportPath, notifier.paths[0])

	cached, err := svc.CachedResults("alice", mustDay(t, "2025-07-04"), 1)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, []int{7}, cached[0].ABCD)
	assert.Equal(t, out.Run.ID, cached[0].RunID)
}

func TestServiceAnalyzeSurvivesOptionalFailures(t *testing.T) {
	svc := newTestService(t)
	svc.Notifier = &fakeNotifier{err: errors.New("slack down")}
	svc.Narrator = fakeNarrator{err: errors.New("overloaded")}
	_, err := svc.Import("", writeDocs(t))
	require.NoError(t, err)

	out, err := svc.AnalyzeLatest(context.Background(), "alice")
	require.NoError(t, err)
	data, err := os.ReadFile(out.ReportPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "### Notes")
}

func TestServiceAnalyzeErrors(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AnalyzeLatest(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNoEligibleDate)

	_, err = svc.Import("", writeDocs(t))
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), "alice", mustDay(t, "2025-07-03"), 0)
	assert.ErrorContains(t, err, "needs position 4+")

	_, err = svc.Analyze(context.Background(), "alice", mustDay(t, "2025-07-04"), 2)
	assert.ErrorContains(t, err, "no planet selected for HR 2")
}

func TestScheduledJobSkipsUsersWithoutData(t *testing.T) {
	svc := newTestService(t)
	job := scheduledJob(svc)
	assert.NoError(t, job(context.Background(), "nobody"))

	_, err := svc.Import("", writeDocs(t))
	require.NoError(t, err)
	assert.NoError(t, job(context.Background(), "alice"))

	users, err := scheduledUsers(svc, nil)()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
	users, err = scheduledUsers(svc, []string{"bob"})()
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, users)
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	orig := loadConfig
	loadConfig = func() (config.Config, error) {
		return config.Config{
			DBPath:          filepath.Join(dir, "cli.db"),
			ReportOutputDir: filepath.Join(dir, "reports"),
			Workers:         2,
			LogLevel:        "error",
			Timezone:        "UTC",
			Location:        time.UTC,
		}, nil
	}
	t.Cleanup(func() { loadConfig = orig })

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	out, err := run(append([]string{"import"}, writeDocs(t)...)...)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "alice 2025-07-0"))

	out, err = run("dates", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-07-01\n")
	assert.Contains(t, out, "2025-07-04  eligible\n")

	out, err = run("analyze", "--user", "alice", "--date", "2025-07-04", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "HR 1 (Su): ABCD=[7] BCD=[2 5] rate=75.0%")
	reportPath := filepath.Join(dir, "reports", "alice_20250704.md")
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| 3 | x |  |  | - | Only in A (need ≥2 for ABCD) |")

	out, err = run("analyze", "--user", "alice", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "ABCD/BCD Report: alice 2025-07-04\n")
	assert.Contains(t, out, "- D-1 Set-1 Matrix ABCD: 7 | BCD: 2, 5\n")

	_, err = run("analyze", "--user", "alice", "--date", "07/04/2025")
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	_, err = run("analyze")
	assert.ErrorContains(t, err, "--user is required")

	_, err = run("serve")
	assert.ErrorContains(t, err, "analysis_schedule is not set")

	loadConfig = func() (config.Config, error) { return config.Config{}, fmt.Errorf("boom") }
	_, err = run("dates", "--user", "alice")
	assert.ErrorContains(t, err, "config: boom")
}
