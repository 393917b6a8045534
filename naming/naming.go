// Package naming recovers clip identifiers and camera serials from GoPro
// video filenames and builds the normalised names used when renaming.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoClipID is returned in strict mode when a filename carries no GoPro clip token.
var ErrNoClipID = errors.New("no GoPro clip identifier in filename")

// TimestampLayout is the suffix format appended by WithTimestamp.
const TimestampLayout = "20060102T150405"

// SerialLength is the length of a GoPro camera serial number.
const SerialLength = 14

// clipRE matches the three GoPro naming schemes as a standalone token:
//   - GXccmmmm / GHccmmmm / GLccmmmm / GMccmmmm (HERO6 and later, quality + chapter + media)
//   - GPccmmmm (HERO5 and earlier, chapters after the first)
//   - GOPRmmmm (HERO5 and earlier, first chapter)
var clipRE = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(G[XHLM]\d{6}|GP\d{6}|GOPR\d{4})(?:[^a-z0-9]|$)`)

// Clip is a parsed GoPro clip token.
type Clip struct {
	// ID is the upper-cased token, e.g. GX010123.
	ID string
	// Quality is X, H, L or M for HERO6+ names and empty for legacy names.
	Quality string
	// Chapter is 1-based; legacy GOPR names are chapter 1.
	Chapter int
	MediaID int
	Legacy  bool
}

// Name is everything recoverable from a video filename.
type Name struct {
	Original string
	Stem     string
	Ext      string
	// BaseID is the canonical clip identifier, falling back to the stem.
	BaseID string
	// Serial is set when the filename starts with "<serial>_".
	Serial string
	Model  string
	Clip   *Clip
}

// Parse extracts the clip identifier and any serial prefix from a filename.
// Only the final path element is considered.
func Parse(filename string, serials *SerialTable) Name {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	n := Name{Original: base, Stem: stem, Ext: ext, BaseID: stem}

	rest := stem
	if head, tail, ok := strings.Cut(stem, "_"); ok && serials != nil {
		if len(head) == SerialLength && isAlnum(head) {
			n.Serial = strings.ToUpper(head)
			n.Model, _ = serials.Lookup(head)
			rest = tail
			n.BaseID = tail
		}
	}

	if c, ok := ParseClip(rest); ok {
		n.Clip = &c
		n.BaseID = c.ID
	}
	return n
}

// ParseClip finds the first GoPro clip token in s.
func ParseClip(s string) (Clip, bool) {
	m := clipRE.FindStringSubmatch(s)
	if m == nil {
		return Clip{}, false
	}
	id := strings.ToUpper(m[1])

	switch {
	case strings.HasPrefix(id, "GOPR"):
		media, _ := strconv.Atoi(id[4:])
		return Clip{ID: id, Chapter: 1, MediaID: media, Legacy: true}, true
	case strings.HasPrefix(id, "GP"):
		chapter, _ := strconv.Atoi(id[2:4])
		media, _ := strconv.Atoi(id[4:])
		return Clip{ID: id, Chapter: chapter, MediaID: media, Legacy: true}, true
	default:
		chapter, _ := strconv.Atoi(id[2:4])
		media, _ := strconv.Atoi(id[4:])
		return Clip{ID: id, Quality: id[1:2], Chapter: chapter, MediaID: media}, true
	}
}

// RequireClip fails with ErrNoClipID when n has no GoPro clip token.
func RequireClip(n Name) error {
	if n.Clip == nil {
		return fmt.Errorf("%s: %w", n.Original, ErrNoClipID)
	}
	return nil
}

// WithSerial prefixes filename with "<serial>_". It is a no-op when the
// filename already starts with that serial.
func WithSerial(filename, serial string) string {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	if serial == "" || strings.HasPrefix(strings.ToUpper(filename), serial+"_") {
		return filename
	}
	return serial + "_" + filename
}

// WithTimestamp appends "_<YYYYMMDDTHHMMSS>" (UTC) to the filename stem.
// It is a no-op when the stem already ends with that stamp.
func WithTimestamp(filename string, t time.Time) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	stamp := t.UTC().Format(TimestampLayout)
	if strings.HasSuffix(stem, "_"+stamp) {
		return filename
	}
	return stem + "_" + stamp + ext
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
