// Package batch drives the telemetry pipeline over a set of videos, one at a
// time, reporting progress through an Observer.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/user/gopro-telemetry/db"
	"github.com/user/gopro-telemetry/telemetry"
)

// Journal receives a record of every step. *db.Journal implements it.
type Journal interface {
	EnsureVideo(path, baseID, serial, model string) (int64, error)
	RecordStep(videoID int64, rec db.StepRecord) error
}

// Options controls a batch run.
type Options struct {
	Tools telemetry.Toolchain
	// Extract is passed to telemetry.New for every file.
	Extract []telemetry.Option
	// Serial and Timestamp enable the renaming stages.
	Serial    bool
	Timestamp bool
	// FailFast stops the batch at the first failed file.
	FailFast bool
	Journal  Journal
	Logger   *slog.Logger
}

// FileStatus summarises one file.
type FileStatus string

const (
	FileProcessed FileStatus = "processed"
	FileSkipped   FileStatus = "skipped"
	FileFailed    FileStatus = "failed"
)

// FileResult is the outcome for one video.
type FileResult struct {
	// Path is the final video path, after any rename.
	Path   string
	Source string
	BaseID string
	Steps  []telemetry.StepResult
	// FailedStep is empty when validation failed before any step ran.
	FailedStep telemetry.Step
	Err        error
	Duration   time.Duration
}

// Status derives the file status from its steps.
func (r FileResult) Status() FileStatus {
	if r.Err != nil {
		return FileFailed
	}
	for _, s := range r.Steps {
		if s.Status == telemetry.StatusDone {
			return FileProcessed
		}
	}
	return FileSkipped
}

// Report is the outcome of a whole batch.
type Report struct {
	Files      []FileResult
	Processed  int
	Skipped    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Err returns an error summarising failed files, or nil.
func (r Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d videos failed", r.Failed, len(r.Files))
}

func (r *Report) add(fr FileResult) {
	r.Files = append(r.Files, fr)
	switch fr.Status() {
	case FileProcessed:
		r.Processed++
	case FileSkipped:
		r.Skipped++
	case FileFailed:
		r.Failed++
	}
}

// Run processes files sequentially. Per-file errors are collected in the
// report; the batch continues unless FailFast is set. A cancelled context
// stops the batch and is returned as the error.
func Run(ctx context.Context, files []string, opts Options, obs Observer) (Report, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	rep := Report{StartedAt: time.Now()}
	obs.OnStart(len(files))

	var runErr error
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		obs.OnFileStart(i, f)
		fr := ProcessFile(ctx, f, opts, obs)
		rep.add(fr)
		obs.OnFileDone(i, fr)

		if fr.Err != nil {
			if errors.Is(fr.Err, context.Canceled) {
				runErr = fr.Err
				break
			}
			if opts.FailFast {
				break
			}
		}
	}

	rep.FinishedAt = time.Now()
	obs.OnDone(rep)
	return rep, runErr
}

// ProcessFile runs the whole pipeline on one video.
func ProcessFile(ctx context.Context, path string, opts Options, obs Observer) FileResult {
	if obs == nil {
		obs = NopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	start := time.Now()
	fr := FileResult{Path: path, Source: path}

	extract := append([]telemetry.Option{telemetry.WithLogger(logger)}, opts.Extract...)
	e, err := telemetry.New(ctx, path, opts.Tools, extract...)
	if err != nil {
		logger.Error("cannot process video", "video", filepath.Base(path), "err", err)
		fr.Err = err
		fr.Duration = time.Since(start)
		return fr
	}
	fr.Path = e.VideoPath
	fr.BaseID = e.Name.BaseID

	fj := &fileJournal{j: opts.Journal, logger: logger}

	for _, st := range e.Pipeline(opts.Serial, opts.Timestamp) {
		if !renames(st.Step) {
			fj.open(e)
		}
		stepStart := time.Now()
		res, err := st.Run(ctx)
		if err != nil {
			fr.FailedStep = st.Step
			fr.Err = fmt.Errorf("%s: %w", st.Step, err)
			logger.Error("step failed", "video", filepath.Base(e.VideoPath), "step", st.Step, "err", err)
			fj.record(db.StepRecord{
				Step: string(st.Step), Status: db.StatusFailed, Error: err.Error(),
				StartedAt: stepStart, Duration: time.Since(stepStart),
			})
			break
		}
		fr.Steps = append(fr.Steps, res)
		obs.OnStep(e.VideoPath, res)
		fj.record(db.StepRecord{
			Step: string(res.Step), Status: string(res.Status), Paths: res.Paths,
			StartedAt: stepStart, Duration: res.Duration,
		})
	}
	fj.open(e)

	fr.Path = e.VideoPath
	fr.BaseID = e.Name.BaseID
	fr.Duration = time.Since(start)
	if fr.Err == nil {
		logger.Info("video done", "video", filepath.Base(fr.Path), "status", fr.Status(), "took", fr.Duration.Round(time.Millisecond))
	}
	return fr
}

func renames(step telemetry.Step) bool {
	return step == telemetry.StepSerial || step == telemetry.StepTimestamp
}

// fileJournal records the steps of one video. The video is registered once
// its name is final, after the rename stages, so every row carries the path
// the video ends up with. Records made before that are held back.
// Journal failures never fail the video; they are logged and recording is
// turned off for this file.
type fileJournal struct {
	j       Journal
	logger  *slog.Logger
	id      int64
	opened  bool
	pending []db.StepRecord
}

func (f *fileJournal) open(e *telemetry.Extractor) {
	if f.j == nil || f.opened {
		return
	}
	f.opened = true
	id, err := f.j.EnsureVideo(e.VideoPath, e.Name.BaseID, e.Name.Serial, e.Name.Model)
	if err != nil {
		f.logger.Warn("journal unavailable", "err", err)
		f.pending = nil
		return
	}
	f.id = id
	for _, rec := range f.pending {
		f.write(rec)
	}
	f.pending = nil
}

func (f *fileJournal) record(rec db.StepRecord) {
	if f.j == nil {
		return
	}
	if !f.opened {
		f.pending = append(f.pending, rec)
		return
	}
	f.write(rec)
}

func (f *fileJournal) write(rec db.StepRecord) {
	if f.id == 0 {
		return
	}
	if err := f.j.RecordStep(f.id, rec); err != nil {
		f.logger.Warn("journal write failed", "step", rec.Step, "err", err)
	}
}
