// Package mediatest provides a fake media.Runner that imitates ffprobe,
// ffmpeg and the GoPro converters by writing the files they would produce.
package mediatest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/user/gopro-telemetry/media"
)

// Tool names used by tests.
const (
	FFmpeg   = "ffmpeg"
	FFprobe  = "ffprobe"
	ToGPX    = "gopro2gpx"
	ToJSON   = "gopro2json"
	GPMDInfo = "gpmdinfo"
)

// GoProProbe is ffprobe output for a HERO-style file with video, audio,
// timecode, gpmd and fdsc tracks.
const GoProProbe = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "codec_tag_string": "avc1", "tags": {"handler_name": "\tGoPro AVC  "}},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "codec_tag_string": "mp4a", "tags": {"handler_name": "\tGoPro AAC  "}},
    {"index": 2, "codec_type": "data", "codec_tag_string": "tmcd", "tags": {"handler_name": "\tGoPro TCD  "}},
    {"index": 3, "codec_type": "data", "codec_tag_string": "gpmd", "tags": {"handler_name": "\tGoPro MET  "}},
    {"index": 4, "codec_type": "data", "codec_tag_string": "fdsc", "tags": {"handler_name": "\tGoPro SOS  "}}
  ],
  "format": {
    "filename": "GX010123.MP4",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "61.394000",
    "size": "187345920",
    "tags": {"creation_time": "2021-07-04T09:30:15.000000Z"}
  }
}`

// PlainProbe is ffprobe output for an ordinary phone video with no telemetry.
const PlainProbe = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "codec_tag_string": "avc1"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "codec_tag_string": "mp4a"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.0"}
}`

// CSVNames are the files gpmdinfo writes into its working directory.
var CSVNames = []string{"gps.csv", "gyro.csv", "accl.csv", "temp.csv"}

// Runner is a media.Runner that records calls and fakes tool output.
type Runner struct {
	// Probes maps an input path to ffprobe JSON. Unknown paths get GoProProbe.
	Probes map[string]string
	// Serial is embedded in the fake fdsc payload.
	Serial string
	// Fail makes the named tool exit with status 1.
	Fail map[string]bool
	// Truncate makes the named tool write part of its output and then exit
	// with status 255, as ffmpeg does when interrupted.
	Truncate map[string]bool
	// SkipCSV omits the named files from gpmdinfo output.
	SkipCSV []string

	mu    sync.Mutex
	calls []media.Command
}

// Calls returns the commands run so far.
func (r *Runner) Calls() []media.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsTo returns the commands run for the named tool.
func (r *Runner) CallsTo(name string) []media.Command {
	var out []media.Command
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Runner) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Runner) Run(ctx context.Context, c media.Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()

	if r.Fail[c.Name] {
		return nil, &media.ToolError{Tool: c.Name, Args: c.Args, ExitCode: 1, Output: c.Name + ": simulated failure"}
	}

	if r.Truncate[c.Name] {
		if out := outputPath(c); out != "" {
			if err := os.WriteFile(out, []byte("GPMF-trunc"), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, &media.ToolError{Tool: c.Name, Args: c.Args, ExitCode: 255, Output: c.Name + ": interrupted"}
	}

	last := ""
	if len(c.Args) > 0 {
		last = c.Args[len(c.Args)-1]
	}

	switch c.Name {
	case FFprobe:
		if p, ok := r.Probes[last]; ok {
			return []byte(p), nil
		}
		return []byte(GoProProbe), nil
	case FFmpeg:
		if last == "-" {
			return Descriptor(r.Serial), nil
		}
		return nil, os.WriteFile(last, []byte("GPMF-sidecar"), 0o644)
	}

	if i := slices.Index(c.Args, "-o"); i >= 0 && i+1 < len(c.Args) {
		return nil, os.WriteFile(c.Args[i+1], []byte(c.Name+" output"), 0o644)
	}

	for _, name := range CSVNames {
		if slices.Contains(r.SkipCSV, name) {
			continue
		}
		if err := os.WriteFile(filepath.Join(c.Dir, name), []byte("Milliseconds,Value\n"), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// outputPath is the file a command writes: ffmpeg's last argument or the
// converters' -o value.
func outputPath(c media.Command) string {
	if i := slices.Index(c.Args, "-o"); i >= 0 && i+1 < len(c.Args) {
		return c.Args[i+1]
	}
	if c.Name == FFmpeg && len(c.Args) > 0 && c.Args[len(c.Args)-1] != "-" {
		return c.Args[len(c.Args)-1]
	}
	return ""
}

// Descriptor builds an fdsc payload with serial at media.SerialOffset.
func Descriptor(serial string) []byte {
	var b bytes.Buffer
	b.Write(bytes.Repeat([]byte{0x01}, media.SerialOffset))
	field := make([]byte, media.SerialLength)
	copy(field, serial)
	b.Write(field)
	b.WriteString("HD9.01.01.60.00")
	return b.Bytes()
}
