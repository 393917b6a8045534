package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/user/gopro-telemetry/media"
	"github.com/user/gopro-telemetry/pkg/fileutil"
)

// Demux copies the GPMF track into the <video>.bin sidecar.
func (e *Extractor) Demux(ctx context.Context) (StepResult, error) {
	start := time.Now()
	out := e.Artifacts().Sidecar
	if !e.reprocess && fileutil.Exists(out) {
		return e.skip(StepDemux, start, out), nil
	}
	tmp := fileutil.PartialPath(out)
	c := media.Command{Name: e.tools.FFmpeg, Args: media.DemuxArgs(e.VideoPath, e.StreamIndex, tmp)}
	if err := e.produce(ctx, c, tmp, out); err != nil {
		return StepResult{}, fmt.Errorf("demux telemetry: %w", err)
	}
	return done(StepDemux, start, out), nil
}

// GPX converts the sidecar into a GPX track.
func (e *Extractor) GPX(ctx context.Context) (StepResult, error) {
	return e.convert(ctx, StepGPX, e.tools.ToGPX, e.Artifacts().GPX)
}

// JSON converts the sidecar into a JSON dump.
func (e *Extractor) JSON(ctx context.Context) (StepResult, error) {
	return e.convert(ctx, StepJSON, e.tools.ToJSON, e.Artifacts().JSON)
}

func (e *Extractor) convert(ctx context.Context, step Step, tool, out string) (StepResult, error) {
	start := time.Now()
	if !e.reprocess && fileutil.Exists(out) {
		return e.skip(step, start, out), nil
	}
	sidecar, err := e.sidecar()
	if err != nil {
		return StepResult{}, err
	}
	tmp := fileutil.PartialPath(out)
	c := media.Command{Name: tool, Args: []string{"-i", sidecar, "-o", tmp}}
	if err := e.produce(ctx, c, tmp, out); err != nil {
		return StepResult{}, fmt.Errorf("convert to %s: %w", step, err)
	}
	return done(step, start, out), nil
}

// CSV runs gpmdinfo, which writes gps.csv, gyro.csv, accl.csv and temp.csv
// into its working directory, then moves those files next to the video.
// The step is skipped only when all four artifacts exist.
func (e *Extractor) CSV(ctx context.Context) (StepResult, error) {
	start := time.Now()
	a := e.Artifacts()
	if !e.reprocess && fileutil.AllExist(a.CSV()...) {
		return e.skip(StepCSV, start, a.CSV()...), nil
	}
	sidecar, err := e.sidecar()
	if err != nil {
		return StepResult{}, err
	}

	// The working directory sits next to the video so the final moves are
	// plain renames on the same filesystem.
	work, err := os.MkdirTemp(e.Dir(), ".gpmdinfo-*")
	if err != nil {
		return StepResult{}, fmt.Errorf("create working directory: %w", err)
	}
	defer os.RemoveAll(work)

	c := media.Command{Name: e.tools.GPMDInfo, Args: []string{"-i", sidecar}, Dir: work}
	if err := e.run(ctx, c); err != nil {
		return StepResult{}, fmt.Errorf("convert to csv: %w", err)
	}

	for _, o := range csvOutputs {
		src := filepath.Join(work, o.name)
		if !fileutil.Exists(src) {
			return StepResult{}, fmt.Errorf("convert to csv: %s did not write %s", filepath.Base(e.tools.GPMDInfo), o.name)
		}
		if err := fileutil.Move(src, o.dst(a)); err != nil {
			return StepResult{}, fmt.Errorf("move %s: %w", o.name, err)
		}
	}
	return done(StepCSV, start, a.CSV()...), nil
}

// produce runs c, which writes tmp, and moves tmp to out once the tool
// succeeds. On failure neither tmp nor out is left behind, so a later run
// never skips a step whose output is truncated.
func (e *Extractor) produce(ctx context.Context, c media.Command, tmp, out string) error {
	_ = os.Remove(tmp)
	if err := e.run(ctx, c); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(out)
		return err
	}
	if !fileutil.Exists(tmp) {
		_ = os.Remove(out)
		return fmt.Errorf("%s did not write %s", filepath.Base(c.Name), filepath.Base(out))
	}
	return fileutil.Move(tmp, out)
}

func (e *Extractor) sidecar() (string, error) {
	p := e.Artifacts().Sidecar
	if !fileutil.Exists(p) {
		return "", fmt.Errorf("telemetry sidecar %s: %w", filepath.Base(p), os.ErrNotExist)
	}
	return p, nil
}
