package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	FfmpegInstallURL = "https://ffmpeg.org/download.html"
	// GoProUtilsInstallURL hosts gopro2gpx, gopro2json and gpmdinfo.
	GoProUtilsInstallURL = "https://github.com/stilldavid/gopro-utils"
)

// DependencyError contains information about a missing dependency
type DependencyError struct {
	Name       string
	Path       string
	InstallURL string
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Path != "" && e.Path != e.Name {
		return fmt.Sprintf("%s not found at %s. Install from: %s", e.Name, e.Path, e.InstallURL)
	}
	return fmt.Sprintf("%s not found. Install from: %s", e.Name, e.InstallURL)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Tool is an executable the pipeline needs.
type Tool struct {
	// Name is the label shown to the user, e.g. "to_gpx".
	Name string
	// Path is a bare command name looked up on PATH, or a file path.
	Path       string
	InstallURL string
}

// Check resolves the tool and returns the executable path.
func Check(t Tool) (string, error) {
	p := t.Path
	if p == "" {
		p = t.Name
	}
	resolved, err := resolve(p)
	if err != nil {
		return "", &DependencyError{Name: t.Name, Path: p, InstallURL: t.InstallURL, Err: err}
	}
	return resolved, nil
}

// resolve looks bare names up on PATH and checks that explicit paths point
// at an executable regular file.
func resolve(p string) (string, error) {
	if !strings.ContainsRune(p, filepath.Separator) && !strings.ContainsRune(p, '/') {
		return exec.LookPath(p)
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", p)
	}
	if info.Mode().Perm()&0o111 == 0 && filepath.Ext(p) != ".exe" {
		return "", fmt.Errorf("%s is not executable", p)
	}
	return p, nil
}

// CheckAll checks all tools and returns a slice of errors for missing ones
func CheckAll(tools []Tool) []error {
	var errors []error
	for _, t := range tools {
		if _, err := Check(t); err != nil {
			errors = append(errors, err)
		}
	}
	return errors
}
