// Package telemetry runs the per-video extraction pipeline: validate, demux
// the GPMF track to a sidecar, convert it to GPX, JSON and CSV, and
// optionally rename the video with its camera serial or creation time.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/gopro-telemetry/config"
	"github.com/user/gopro-telemetry/media"
	"github.com/user/gopro-telemetry/naming"
)

var (
	// ErrNotVideo is returned when the input is not an existing .MP4 file.
	ErrNotVideo = errors.New("not an MP4 video file")
	// ErrNoTelemetryStream is returned when the probe finds no GoPro metadata track.
	ErrNoTelemetryStream = errors.New("no GoPro telemetry stream")
	// ErrNoCreationTime is returned by AppendTimestamp when the container has no creation_time.
	ErrNoCreationTime = errors.New("no creation time in container metadata")
)

// VideoExt is the extension GoPro cameras write.
const VideoExt = ".MP4"

// IsVideo reports whether name has the .MP4 extension, ignoring case.
func IsVideo(name string) bool {
	return strings.EqualFold(filepath.Ext(name), VideoExt)
}

// Toolchain names the executables the pipeline invokes.
type Toolchain struct {
	FFmpeg   string
	FFprobe  string
	ToGPX    string
	ToJSON   string
	GPMDInfo string
}

// ToolchainFromConfig builds a Toolchain from a loaded config.
func ToolchainFromConfig(cfg *config.Config) Toolchain {
	return Toolchain{
		FFmpeg:   cfg.FFmpeg,
		FFprobe:  cfg.FFprobe,
		ToGPX:    cfg.GoPro.ToGPX,
		ToJSON:   cfg.GoPro.ToJSON,
		GPMDInfo: cfg.GoPro.GPMDInfo,
	}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the os/exec runner.
func WithRunner(r media.Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithReprocess forces every step to regenerate its artifacts.
func WithReprocess(reprocess bool) Option {
	return func(e *Extractor) { e.reprocess = reprocess }
}

// WithSerials sets the known serial prefixes used to parse filenames.
func WithSerials(t *naming.SerialTable) Option {
	return func(e *Extractor) { e.serials = t }
}

// WithStrictNames rejects files whose name carries no GoPro clip token.
func WithStrictNames(strict bool) Option {
	return func(e *Extractor) { e.strict = strict }
}

// Extractor holds the validated state for one video.
type Extractor struct {
	VideoPath string
	Name      naming.Name
	Probe     *media.Probe
	// StreamIndex is the index of the GPMF track inside the container.
	StreamIndex int

	tools     Toolchain
	runner    media.Runner
	logger    *slog.Logger
	serials   *naming.SerialTable
	reprocess bool
	strict    bool
}

// New validates videoPath and probes it for a GoPro telemetry stream.
func New(ctx context.Context, videoPath string, tools Toolchain, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		tools:   tools,
		serials: naming.DefaultSerials(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = media.ExecRunner{Logger: e.logger}
	}

	abs, err := filepath.Abs(videoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", videoPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotVideo, abs, err)
	}
	if !info.Mode().IsRegular() || !IsVideo(abs) {
		return nil, fmt.Errorf("%w: %s", ErrNotVideo, abs)
	}
	e.VideoPath = abs
	e.Name = naming.Parse(abs, e.serials)
	if e.strict {
		if err := naming.RequireClip(e.Name); err != nil {
			return nil, err
		}
	}

	probe, err := media.ProbeFile(ctx, e.runner, tools.FFprobe, abs)
	if err != nil {
		return nil, err
	}
	stream, ok := probe.TelemetryStream()
	if !ok {
		return nil, fmt.Errorf("%w in %s", ErrNoTelemetryStream, abs)
	}
	e.Probe = probe
	e.StreamIndex = stream.Index
	return e, nil
}

// Dir returns the directory holding the video and its artifacts.
func (e *Extractor) Dir() string { return filepath.Dir(e.VideoPath) }

// Artifacts returns the artifact paths for the current video path.
func (e *Extractor) Artifacts() Artifacts { return ArtifactsFor(e.VideoPath) }

// Stage is one named pipeline step.
type Stage struct {
	Step Step
	Run  func(context.Context) (StepResult, error)
}

// Pipeline returns the stages to run, in order. Renames come first so the
// artifacts are named after the final video name.
func (e *Extractor) Pipeline(withSerial, withTimestamp bool) []Stage {
	var stages []Stage
	if withSerial {
		stages = append(stages, Stage{StepSerial, e.RenameWithSerial})
	}
	if withTimestamp {
		stages = append(stages, Stage{StepTimestamp, e.AppendTimestamp})
	}
	return append(stages,
		Stage{StepDemux, e.Demux},
		Stage{StepGPX, e.GPX},
		Stage{StepJSON, e.JSON},
		Stage{StepCSV, e.CSV},
	)
}

// ExtractAll demuxes the telemetry and runs every conversion.
func (e *Extractor) ExtractAll(ctx context.Context) ([]StepResult, error) {
	var results []StepResult
	for _, st := range e.Pipeline(false, false) {
		res, err := st.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s: %w", st.Step, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Extractor) run(ctx context.Context, c media.Command) error {
	_, err := e.runner.Run(ctx, c)
	return err
}

func (e *Extractor) skip(step Step, start time.Time, paths ...string) StepResult {
	e.logger.Info("artifact exists, skipping", "step", step, "video", filepath.Base(e.VideoPath))
	return StepResult{Step: step, Status: StatusSkipped, Paths: paths, Duration: time.Since(start)}
}

func done(step Step, start time.Time, paths ...string) StepResult {
	return StepResult{Step: step, Status: StatusDone, Paths: paths, Duration: time.Since(start)}
}
