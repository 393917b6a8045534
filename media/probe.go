package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TagTelemetry is the codec tag of the GoPro GPMF metadata track.
	TagTelemetry = "gpmd"
	// TagDescriptor is the codec tag of the GoPro firmware/camera descriptor track.
	TagDescriptor = "fdsc"

	goproMetHandler = "GoPro MET"
)

// Probe is the subset of `ffprobe -show_streams -show_format` output the
// extractor relies on.
type Probe struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	Index          int               `json:"index"`
	CodecName      string            `json:"codec_name"`
	CodecType      string            `json:"codec_type"`
	CodecTagString string            `json:"codec_tag_string"`
	Tags           map[string]string `json:"tags"`
}

// HandlerName returns the stream's handler_name tag with surrounding blanks removed.
func (s Stream) HandlerName() string {
	return strings.TrimSpace(s.Tags["handler_name"])
}

type Format struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	Tags       map[string]string `json:"tags"`
}

// ProbeArgs returns the ffprobe arguments used to inspect path.
func ProbeArgs(path string) []string {
	return []string{"-v", "error", "-print_format", "json", "-show_streams", "-show_format", path}
}

// ProbeFile runs ffprobe on path and decodes its JSON report.
func ProbeFile(ctx context.Context, r Runner, ffprobe, path string) (*Probe, error) {
	out, err := r.Run(ctx, Command{Name: ffprobe, Args: ProbeArgs(path)})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	p, err := ParseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	return p, nil
}

// ParseProbe decodes ffprobe JSON output.
func ParseProbe(data []byte) (*Probe, error) {
	var p Probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return &p, nil
}

// StreamByTag returns the first stream whose codec tag equals tag.
func (p *Probe) StreamByTag(tag string) (Stream, bool) {
	for _, s := range p.Streams {
		if strings.EqualFold(s.CodecTagString, tag) {
			return s, true
		}
	}
	return Stream{}, false
}

// TelemetryStream returns the GPMF stream, matched by codec tag first and by
// the "GoPro MET" handler name as a fallback for older ffprobe builds.
func (p *Probe) TelemetryStream() (Stream, bool) {
	if s, ok := p.StreamByTag(TagTelemetry); ok {
		return s, true
	}
	for _, s := range p.Streams {
		if strings.Contains(s.HandlerName(), goproMetHandler) {
			return s, true
		}
	}
	return Stream{}, false
}

// CreationTime returns the container creation_time tag in UTC.
func (p *Probe) CreationTime() (time.Time, bool) {
	v := strings.TrimSpace(p.Format.Tags["creation_time"])
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Duration returns the container duration, or zero when unknown.
func (p *Probe) Duration() time.Duration {
	secs, err := strconv.ParseFloat(p.Format.Duration, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
