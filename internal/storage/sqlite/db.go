package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"abcdreport/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS day_cells (
		user_id  TEXT NOT NULL,
		date     TEXT NOT NULL,
		topic    TEXT NOT NULL,
		element  TEXT NOT NULL,
		planet   TEXT NOT NULL,
		value    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, date, topic, element, planet)
	);
	CREATE INDEX IF NOT EXISTS idx_day_cells_user_date ON day_cells(user_id, date);

	CREATE TABLE IF NOT EXISTS hour_entries (
		user_id TEXT NOT NULL,
		date    TEXT NOT NULL,
		hr      INTEGER NOT NULL,
		planet  TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, date, hr)
	);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		analysis_date TEXT NOT NULL,
		sequence      TEXT NOT NULL DEFAULT '',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_user_date ON analysis_runs(user_id, analysis_date);

	CREATE TABLE IF NOT EXISTS analysis_results (
		run_id        TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		analysis_date TEXT NOT NULL,
		hr            INTEGER NOT NULL,
		topic         TEXT NOT NULL,
		abcd          TEXT NOT NULL DEFAULT '[]',
		bcd           TEXT NOT NULL DEFAULT '[]',
		computed_at   DATETIME NOT NULL,
		PRIMARY KEY (user_id, analysis_date, hr, topic)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// UpsertCells writes the raw cells of one user's day data.
func UpsertCells(db *sql.DB, userID string, cells domain.Cells) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO day_cells (user_id, date, topic, element, planet, value)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date, topic, element, planet) DO UPDATE SET value = excluded.value`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	written := 0
	for k, raw := range cells {
		if _, err := stmt.Exec(userID, k.Day, k.Topic, k.Element, k.Planet, raw); err != nil {
			return written, err
		}
		written++
	}
	return written, tx.Commit()
}

// UpsertHourEntry replaces the hour-to-planet selections of one date.
func UpsertHourEntry(db *sql.DB, userID string, entry domain.HourEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	day := domain.DayKey(entry.Date)
	if _, err := tx.Exec(`DELETE FROM hour_entries WHERE user_id = ? AND date = ?`, userID, day); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO hour_entries (user_id, date, hr, planet) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for hr, planet := range entry.Planets {
		if _, err := stmt.Exec(userID, day, hr, strings.TrimSpace(planet)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func GetHourEntry(db *sql.DB, userID string, date time.Time) (domain.HourEntry, error) {
	entry := domain.HourEntry{Date: date, Planets: make(map[int]string)}
	rows, err := db.Query(
		`SELECT hr, planet FROM hour_entries WHERE user_id = ? AND date = ? ORDER BY hr`,
		userID, domain.DayKey(date),
	)
	if err != nil {
		return entry, err
	}
	defer rows.Close()

	for rows.Next() {
		var hr int
		var planet string
		if err := rows.Scan(&hr, &planet); err != nil {
			return entry, err
		}
		entry.Planets[hr] = planet
	}
	return entry, rows.Err()
}

// ListDates returns every date with cell data for the user, ascending.
func ListDates(db *sql.DB, userID string) ([]time.Time, error) {
	rows, err := db.Query(
		`SELECT DISTINCT date FROM day_cells WHERE user_id = ? ORDER BY date`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		d, err := domain.ParseDayKey(s)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func ListUsers(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT user_id FROM day_cells ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// LoadSnapshot reads the cells of the given days into memory so the
// classifier never touches the database.
func LoadSnapshot(db *sql.DB, userID string, days []time.Time) (domain.Cells, error) {
	cells := domain.Cells{}
	if len(days) == 0 {
		return cells, nil
	}
	placeholders := make([]string, len(days))
	args := make([]any, 0, len(days)+1)
	args = append(args, userID)
	for i, d := range days {
		placeholders[i] = "?"
		args = append(args, domain.DayKey(d))
	}
	rows, err := db.Query(
		`SELECT date, topic, element, planet, value FROM day_cells
		 WHERE user_id = ? AND date IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var day, topic, element, planet, value string
		if err := rows.Scan(&day, &topic, &element, &planet, &value); err != nil {
			return nil, err
		}
		cells.Set(topic, element, day, planet, value)
	}
	return cells, rows.Err()
}

// SaveRun caches a run's topic results keyed by (user, analysis date, hour,
// topic). Each hour in the run replaces what was cached for that hour.
func SaveRun(db *sql.DB, run domain.Run) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	day := domain.DayKey(run.AnalysisDate())
	if _, err := tx.Exec(
		`INSERT INTO analysis_runs (id, user_id, analysis_date, sequence, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.UserID, day, run.Sequence.String(), run.CreatedAt,
	); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO analysis_results (run_id, user_id, analysis_date, hr, topic, abcd, bcd, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, analysis_date, hr, topic) DO UPDATE SET
		   run_id = excluded.run_id, abcd = excluded.abcd, bcd = excluded.bcd, computed_at = excluded.computed_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, hour := range run.Hours {
		if _, err := tx.Exec(
			`DELETE FROM analysis_results WHERE user_id = ? AND analysis_date = ? AND hr = ?`,
			run.UserID, day, hour.HR,
		); err != nil {
			return err
		}
		for _, topic := range hour.Order {
			res := hour.Topics[topic]
			abcd, err := encodeNumbers(res.ABCD)
			if err != nil {
				return err
			}
			bcd, err := encodeNumbers(res.BCD)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(run.ID, run.UserID, day, hour.HR, topic, abcd, bcd, run.CreatedAt); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetCachedResults returns the cached topic results of one date and hour,
// ordered by topic name. hr 0 returns every hour.
func GetCachedResults(db *sql.DB, userID string, date time.Time, hr int) ([]domain.CachedResult, error) {
	query := `SELECT run_id, user_id, analysis_date, hr, topic, abcd, bcd, computed_at
		 FROM analysis_results WHERE user_id = ? AND analysis_date = ?`
	args := []any{userID, domain.DayKey(date)}
	if hr != 0 {
		query += ` AND hr = ?`
		args = append(args, hr)
	}
	query += ` ORDER BY hr, topic`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CachedResult
	for rows.Next() {
		var r domain.CachedResult
		var abcd, bcd string
		if err := rows.Scan(&r.RunID, &r.UserID, &r.AnalysisDate, &r.HR, &r.Topic, &abcd, &bcd, &r.ComputedAt); err != nil {
			return nil, err
		}
		if r.ABCD, err = decodeNumbers(abcd); err != nil {
			return nil, fmt.Errorf("abcd of %s: %w", r.Topic, err)
		}
		if r.BCD, err = decodeNumbers(bcd); err != nil {
			return nil, fmt.Errorf("bcd of %s: %w", r.Topic, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func DeleteResultsForDate(db *sql.DB, userID string, date time.Time) (int64, error) {
	res, err := db.Exec(
		`DELETE FROM analysis_results WHERE user_id = ? AND analysis_date = ?`,
		userID, domain.DayKey(date),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func encodeNumbers(ns []int) (string, error) {
	sorted := append([]int{}, ns...)
	sort.Ints(sorted)
	b, err := json.Marshal(sorted)
	return string(b), err
}

func decodeNumbers(s string) ([]int, error) {
	out := []int{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}
