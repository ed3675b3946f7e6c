package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"abcdreport/internal/domain"
	"abcdreport/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDay = `
user: alice
date: 2025-07-04
hours:
  1: Su
  2: Mo
  3: ""
sets:
  D-1 Set-1 Matrix:
    Lagna:
      Su: "as-7-/su-(10 Sc 03)-(17 Ta 58)"
      Mo: "as-3-/mo-(10 Sc 03)-(02 Pi 18)"
    Moon:
      Su: "—"
      Mo: ""
`

const jsonDay = `{
  "date": "2025-07-05",
  "hours": {"1": "Ve"},
  "sets": {"D-9 Set-2 Matrix": {"Hora Lagna": {"Ve": "hl-11-/ve-(22 Ar 45)"}}}
}`

func TestParseYAML(t *testing.T) {
	doc, err := Parse([]byte(yamlDay))
	require.NoError(t, err)
	assert.Equal(t, "alice", doc.User)

	cells, err := doc.Cells()
	require.NoError(t, err)
	assert.Len(t, cells, 3, "blank values are dropped")
	raw, ok := cells.Cell("D-1 Set-1 Matrix", "Lagna", "2025-07-04", "Mo")
	require.True(t, ok)
	assert.Equal(t, "as-3-/mo-(10 Sc 03)-(02 Pi 18)", raw)

	entry, err := doc.HourEntry()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, entry.Hours())
	assert.Equal(t, "2025-07-04", domain.DayKey(entry.Date))
}

func TestParseJSON(t *testing.T) {
	doc, err := Parse([]byte(jsonDay))
	require.NoError(t, err)
	entry, err := doc.HourEntry()
	require.NoError(t, err)
	planet, ok := entry.PlanetFor(1)
	require.True(t, ok)
	assert.Equal(t, "Ve", planet)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte("date: 04/07/2025\n"))
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	_, err = Parse([]byte("date: [\n"))
	assert.Error(t, err)

	doc, err := Parse([]byte("date: 2025-07-04\nhours:\n  first: Su\n"))
	require.NoError(t, err)
	_, err = doc.HourEntry()
	assert.ErrorContains(t, err, "positive number")
}

func TestImport(t *testing.T) {
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "day1.yaml")
	jsonPath := filepath.Join(dir, "day2.json")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDay), 0o644))
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonDay), 0o644))

	doc, err := LoadFile(yamlPath)
	require.NoError(t, err)
	res, err := Import(db, "", doc)
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User)
	assert.Equal(t, 3, res.Cells)
	assert.Equal(t, 2, res.Hours)

	doc, err = LoadFile(jsonPath)
	require.NoError(t, err)
	_, err = Import(db, "", doc)
	assert.ErrorContains(t, err, "no user")
	res, err = Import(db, "alice", doc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cells)

	dates, err := sqlite.ListDates(db, "alice")
	require.NoError(t, err)
	assert.Len(t, dates, 2)

	entry, err := sqlite.GetHourEntry(db, "alice", res.Date)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "Ve"}, entry.Planets)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
