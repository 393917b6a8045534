package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// SerialOffset and SerialLength locate the camera serial inside the fdsc payload.
	SerialOffset = 87
	SerialLength = 14
)

// ErrNoSerial is returned when no camera serial can be read from a video.
var ErrNoSerial = errors.New("no camera serial found")

// DemuxArgs returns the ffmpeg arguments that copy stream index of input
// into a raw sidecar file at output.
func DemuxArgs(input string, index int, output string) []string {
	return []string{
		"-y", "-i", input,
		"-codec", "copy",
		"-map", fmt.Sprintf("0:%d", index),
		"-f", "rawvideo",
		output,
	}
}

// ReadSerial pipes the fdsc stream at index through ffmpeg and extracts the
// camera serial from it.
func ReadSerial(ctx context.Context, r Runner, ffmpeg, input string, index int) (string, error) {
	args := []string{
		"-v", "error", "-i", input,
		"-codec", "copy",
		"-map", fmt.Sprintf("0:%d", index),
		"-f", "data", "-",
	}
	out, err := r.Run(ctx, Command{Name: ffmpeg, Args: args})
	if err != nil {
		return "", fmt.Errorf("read descriptor stream: %w", err)
	}
	return SerialFromDescriptor(out)
}

// SerialFromDescriptor returns the serial stored at SerialOffset in an fdsc payload.
func SerialFromDescriptor(b []byte) (string, error) {
	if len(b) < SerialOffset+SerialLength {
		return "", fmt.Errorf("%w: descriptor is %d bytes", ErrNoSerial, len(b))
	}
	raw := string(b[SerialOffset : SerialOffset+SerialLength])
	serial := strings.Trim(raw, "\x00 ")
	if serial == "" {
		return "", ErrNoSerial
	}
	for _, r := range serial {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return "", fmt.Errorf("%w: unexpected bytes %q", ErrNoSerial, raw)
		}
	}
	return serial, nil
}
