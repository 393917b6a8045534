package batch

import "github.com/user/gopro-telemetry/telemetry"

// Observer receives progress events from Run. Events arrive from the
// goroutine calling Run, in order.
type Observer interface {
	OnStart(total int)
	OnFileStart(idx int, path string)
	OnStep(path string, res telemetry.StepResult)
	OnFileDone(idx int, res FileResult)
	OnDone(rep Report)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnStart(int) {}
func (NopObserver) OnFileStart(int, string) {}
func (NopObserver) OnStep(string, telemetry.StepResult) {}
func (NopObserver) OnFileDone(int, FileResult) {}
func (NopObserver) OnDone(Report) {}
