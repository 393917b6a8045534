// Package tui renders batch progress, either as an interactive bubbletea
// program or as plain lines for logs and pipes.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/user/gopro-telemetry/batch"
	"github.com/user/gopro-telemetry/pkg/timeutil"
	"github.com/user/gopro-telemetry/telemetry"
	"github.com/user/gopro-telemetry/tui/components"
)

// boxWidth caps the progress box on wide terminals.
const boxWidth = 72

// batchStartMsg is sent once the batch knows how many videos it has.
type batchStartMsg struct {
	total int
}

// fileStartMsg is sent when a video enters the pipeline.
type fileStartMsg struct {
	idx  int
	path string
}

// stepMsg carries one finished pipeline step.
type stepMsg struct {
	path string
	res  telemetry.StepResult
}

// fileDoneMsg is sent when a video leaves the pipeline.
type fileDoneMsg struct {
	idx int
	res batch.FileResult
}

// batchDoneMsg is sent after batch.Run returns.
type batchDoneMsg struct {
	report batch.Report
	err    error
}

// tickMsg refreshes the elapsed time.
type tickMsg time.Time

// channelObserver forwards batch events to the program. Sends give up once
// quit is closed so the batch goroutine never blocks on a dead program.
type channelObserver struct {
	ch   chan<- tea.Msg
	quit <-chan struct{}
}

func (o *channelObserver) send(msg tea.Msg) {
	select {
	case o.ch <- msg:
	case <-o.quit:
	}
}

func (o *channelObserver) OnStart(total int) { o.send(batchStartMsg{total: total}) }
func (o *channelObserver) OnFileStart(idx int, path string) {
	o.send(fileStartMsg{idx: idx, path: path})
}
func (o *channelObserver) OnStep(path string, res telemetry.StepResult) {
	o.send(stepMsg{path: path, res: res})
}
func (o *channelObserver) OnFileDone(idx int, res batch.FileResult) {
	o.send(fileDoneMsg{idx: idx, res: res})
}
func (o *channelObserver) OnDone(batch.Report) {}

// waitForBatchMsg returns a tea.Cmd that waits for the next message on the channel.
func waitForBatchMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// BatchModel is the Bubbletea model for the batch progress display.
type BatchModel struct {
	ch     <-chan tea.Msg
	cancel context.CancelFunc
	start  time.Time
	width  int

	progress components.BatchProgressState

	report batch.Report
	err    error
	done   bool
}

// NewBatchModel creates a model reading batch events from ch. cancel is
// called when the user interrupts the run.
func NewBatchModel(ch <-chan tea.Msg, cancel context.CancelFunc, total int) *BatchModel {
	return &BatchModel{
		ch:     ch,
		cancel: cancel,
		start:  time.Now(),
		progress: components.BatchProgressState{
			Active: true,
			Total:  total,
		},
	}
}

// Init starts listening for batch events.
func (m *BatchModel) Init() tea.Cmd {
	return tea.Batch(waitForBatchMsg(m.ch), tickCmd())
}

// Update handles messages and updates the model state.
func (m *BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// Keep running until the batch goroutine reports back so the
			// current tool is stopped before the program exits.
			if !m.progress.Cancelling {
				m.progress.Cancelling = true
				m.cancel()
			}
		}
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.progress.Elapsed = timeutil.FormatElapsed(time.Since(m.start))
		return m, tickCmd()

	case batchStartMsg:
		m.progress.Total = msg.total
		return m, waitForBatchMsg(m.ch)

	case fileStartMsg:
		m.progress.CurrentFile = filepath.Base(msg.path)
		m.progress.LastStep = ""
		return m, waitForBatchMsg(m.ch)

	case stepMsg:
		m.progress.LastStep = fmt.Sprintf("%s %s", msg.res.Step, msg.res.Status)
		return m, waitForBatchMsg(m.ch)

	case fileDoneMsg:
		m.progress.Completed++
		if msg.res.Err != nil {
			m.progress.Errors++
		}
		return m, waitForBatchMsg(m.ch)

	case batchDoneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		m.progress.Elapsed = timeutil.FormatElapsed(time.Since(m.start))
		return m, tea.Quit
	}
	return m, nil
}

// View renders the progress box.
func (m *BatchModel) View() string {
	width := m.width
	if width <= 0 || width > boxWidth {
		width = boxWidth
	}
	return components.BatchProgress(m.progress, width) + "\n"
}

// Result returns the report and error delivered by the batch.
func (m *BatchModel) Result() (batch.Report, error) {
	return m.report, m.err
}

// Run processes files with an interactive progress box. The batch runs in
// its own goroutine; the program exits once the batch returns.
func Run(ctx context.Context, files []string, opts batch.Options) (batch.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan tea.Msg)
	quit := make(chan struct{})
	finished := make(chan batchDoneMsg, 1)
	obs := &channelObserver{ch: ch, quit: quit}

	go func() {
		rep, err := batch.Run(ctx, files, opts, obs)
		done := batchDoneMsg{report: rep, err: err}
		finished <- done
		obs.send(done)
	}()

	model := NewBatchModel(ch, cancel, len(files))
	_, err := tea.NewProgram(model).Run()
	close(quit)
	if err != nil {
		cancel()
		res := <-finished
		return res.report, fmt.Errorf("progress display: %w", err)
	}
	res := <-finished
	return res.report, res.err
}
