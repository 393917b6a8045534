package db

import "time"

// StepRecord is one pipeline step outcome written to the journal.
type StepRecord struct {
	Step      string
	Status    string
	Paths     []string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// HistoryEntry is a journal row joined with its video.
type HistoryEntry struct {
	Path      string
	BaseID    string
	Serial    string
	Model     string
	Step      string
	Status    string
	Paths     []string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}
