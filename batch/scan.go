package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/user/gopro-telemetry/telemetry"
)

// Scan lists the .MP4 files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func Scan(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read video directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !telemetry.IsVideo(e.Name()) {
			continue
		}
		if !e.Type().IsRegular() {
			info, err := e.Info()
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		files = append(files, filepath.Join(abs, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
