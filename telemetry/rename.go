package telemetry

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/user/gopro-telemetry/media"
	"github.com/user/gopro-telemetry/naming"
	"github.com/user/gopro-telemetry/pkg/fileutil"
)

// RenameWithSerial prefixes the video filename with the camera serial read
// from the fdsc track. It is skipped when the filename already starts with
// a serial, known to the serial table or not.
func (e *Extractor) RenameWithSerial(ctx context.Context) (StepResult, error) {
	start := time.Now()
	if e.Name.Serial != "" {
		return e.skip(StepSerial, start, e.VideoPath), nil
	}

	stream, ok := e.Probe.StreamByTag(media.TagDescriptor)
	if !ok {
		return StepResult{}, fmt.Errorf("%w: no %s stream in %s", media.ErrNoSerial, media.TagDescriptor, filepath.Base(e.VideoPath))
	}
	serial, err := media.ReadSerial(ctx, e.runner, e.tools.FFmpeg, e.VideoPath, stream.Index)
	if err != nil {
		return StepResult{}, err
	}
	if _, known := e.serials.Lookup(serial); !known {
		e.logger.Warn("camera serial has an unknown prefix", "serial", serial, "video", filepath.Base(e.VideoPath))
	}

	base := filepath.Base(e.VideoPath)
	name := naming.WithSerial(base, serial)
	if name == base {
		return e.skip(StepSerial, start, e.VideoPath), nil
	}
	if err := e.renameTo(name); err != nil {
		return StepResult{}, err
	}
	return done(StepSerial, start, e.VideoPath), nil
}

// AppendTimestamp appends the container creation time to the video filename.
func (e *Extractor) AppendTimestamp(ctx context.Context) (StepResult, error) {
	start := time.Now()
	created, ok := e.Probe.CreationTime()
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %s", ErrNoCreationTime, filepath.Base(e.VideoPath))
	}
	base := filepath.Base(e.VideoPath)
	name := naming.WithTimestamp(base, created)
	if name == base {
		return e.skip(StepTimestamp, start, e.VideoPath), nil
	}
	if err := e.renameTo(name); err != nil {
		return StepResult{}, err
	}
	return done(StepTimestamp, start, e.VideoPath), nil
}

// renameTo moves the video, re-parses its name and then moves any artifacts
// already produced under the old name. The extractor follows the video even
// when an artifact move fails.
func (e *Extractor) renameTo(name string) error {
	oldPath := e.VideoPath
	newPath := filepath.Join(e.Dir(), name)
	if newPath == oldPath {
		return nil
	}
	if err := fileutil.MoveNoClobber(oldPath, newPath); err != nil {
		return fmt.Errorf("rename video: %w", err)
	}
	e.logger.Info("renamed video", "from", filepath.Base(oldPath), "to", name)
	e.VideoPath = newPath
	e.Name = naming.Parse(newPath, e.serials)

	oldArtifacts := ArtifactsFor(oldPath).All()
	newArtifacts := ArtifactsFor(newPath).All()
	for i, src := range oldArtifacts {
		if !fileutil.Exists(src) {
			continue
		}
		if err := fileutil.MoveNoClobber(src, newArtifacts[i]); err != nil {
			return fmt.Errorf("rename artifact: %w", err)
		}
	}
	return nil
}
