package telemetry

import "time"

// Step names a pipeline stage.
type Step string

const (
	StepSerial    Step = "serial"
	StepTimestamp Step = "timestamp"
	StepDemux     Step = "demux"
	StepGPX       Step = "gpx"
	StepJSON      Step = "json"
	StepCSV       Step = "csv"
)

// Status is the outcome of a stage that did not fail.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
)

// StepResult describes what a stage did.
type StepResult struct {
	Step     Step
	Status   Status
	Paths    []string
	Duration time.Duration
}
