package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// StatusFailed marks a step that returned an error.
const StatusFailed = "failed"

// Journal records pipeline runs in SQLite.
type Journal struct {
	DB *sql.DB
}

// OpenJournal opens the journal for a video directory.
func OpenJournal(dir string) (*Journal, error) {
	db, err := Open(PathFor(dir))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{DB: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.DB.Close()
}

// EnsureVideo returns the id for path, inserting the video if needed and
// refreshing its identifier and serial otherwise.
func (j *Journal) EnsureVideo(path, baseID, serial, model string) (int64, error) {
	var id int64
	err := j.DB.QueryRow(SelectVideoByPathSQL, path).Scan(&id)
	if err == nil {
		if _, err := j.DB.Exec(UpdateVideoSQL, baseID, serial, model, id); err != nil {
			return 0, fmt.Errorf("update video: %w", err)
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("select video by path: %w", err)
	}
	result, err := j.DB.Exec(InsertVideoSQL, path, baseID, serial, model, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert video: %w", err)
	}
	return result.LastInsertId()
}

// RecordStep appends a step outcome for videoID.
func (j *Journal) RecordStep(videoID int64, rec StepRecord) error {
	_, err := j.DB.Exec(InsertStepSQL,
		videoID,
		rec.Step,
		rec.Status,
		strings.Join(rec.Paths, "\n"),
		rec.Error,
		rec.StartedAt.UnixMilli(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// History returns the most recent step records, newest first.
func (j *Journal) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.DB.Query(SelectHistorySQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e          HistoryEntry
			paths      string
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&e.Path, &e.BaseID, &e.Serial, &e.Model, &e.Step, &e.Status, &paths, &e.Error, &startedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if paths != "" {
			e.Paths = strings.Split(paths, "\n")
		}
		e.StartedAt = time.UnixMilli(startedAt)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}
