package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/user/gopro-telemetry/batch"
	"github.com/user/gopro-telemetry/pkg/timeutil"
	"github.com/user/gopro-telemetry/telemetry"
)

var (
	doneColor    = color.New(color.FgGreen)
	skippedColor = color.New(color.FgYellow)
	failedColor  = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.Faint)
)

// PlainObserver prints one line per event. It is used when stderr is not a
// terminal or --plain is set.
type PlainObserver struct {
	w     io.Writer
	total int
}

// NewPlainObserver creates an observer writing to w.
func NewPlainObserver(w io.Writer) *PlainObserver {
	return &PlainObserver{w: w}
}

func (p *PlainObserver) OnStart(total int) {
	p.total = total
	fmt.Fprintf(p.w, "Processing %d videos\n", total)
}

func (p *PlainObserver) OnFileStart(idx int, path string) {
	fmt.Fprintf(p.w, "[%d/%d] %s\n", idx+1, p.total, filepath.Base(path))
}

func (p *PlainObserver) OnStep(_ string, res telemetry.StepResult) {
	status := skippedColor.Sprint(res.Status)
	if res.Status == telemetry.StatusDone {
		status = doneColor.Sprint(res.Status)
	}
	names := make([]string, 0, len(res.Paths))
	for _, path := range res.Paths {
		names = append(names, filepath.Base(path))
	}
	fmt.Fprintf(p.w, "  %-9s %s %s\n", res.Step, status, dimColor.Sprint(strings.Join(names, " ")))
}

func (p *PlainObserver) OnFileDone(_ int, res batch.FileResult) {
	if res.Err != nil {
		fmt.Fprintf(p.w, "  %s %v\n", failedColor.Sprint("failed"), res.Err)
	}
}

func (p *PlainObserver) OnDone(rep batch.Report) {
	WriteSummary(p.w, rep)
}

// WriteSummary prints the batch totals and every failed video.
func WriteSummary(w io.Writer, rep batch.Report) {
	elapsed := timeutil.FormatElapsed(rep.FinishedAt.Sub(rep.StartedAt))
	fmt.Fprintf(w, "\n%d processed, %d skipped, %s in %s\n",
		rep.Processed, rep.Skipped, failedCount(rep.Failed), elapsed)
	for _, f := range rep.Files {
		if f.Err == nil {
			continue
		}
		fmt.Fprintf(w, "  %s %s: %v\n", failedColor.Sprint("✗"), filepath.Base(f.Source), f.Err)
	}
}

func failedCount(n int) string {
	s := fmt.Sprintf("%d failed", n)
	if n == 0 {
		return s
	}
	return failedColor.Sprint(s)
}
