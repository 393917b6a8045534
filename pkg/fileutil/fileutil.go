// Package fileutil holds the small filesystem helpers shared by the extractor
// and the batch driver.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// partialPrefix marks files a tool is still writing.
const partialPrefix = ".partial-"

// renameFunc is swapped in tests to simulate EXDEV and other rename failures.
var renameFunc = os.Rename

// CrossDeviceError reports a rename that failed because source and destination
// live on different filesystems. Artifacts are never copied across devices.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cannot move %q to %q across filesystems: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is a *CrossDeviceError.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// AllExist reports whether every path names an existing regular file.
// It returns false for an empty list.
func AllExist(paths ...string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if !Exists(p) {
			return false
		}
	}
	return true
}

// PartialPath returns the name a tool writes to before its output is moved
// to dst. It sits in the same directory and keeps dst's extension.
func PartialPath(dst string) string {
	return filepath.Join(filepath.Dir(dst), partialPrefix+filepath.Base(dst))
}

// Move renames src to dst, replacing dst if it exists.
func Move(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// MoveNoClobber renames src to dst and fails with os.ErrExist when dst is
// already present.
func MoveNoClobber(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("move %s: %w", dst, os.ErrExist)
	} else if !os.IsNotExist(err) {
		return err
	}
	return Move(src, dst)
}

func isEXDEV(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	var le *os.LinkError
	return errors.As(err, &le) && errors.Is(le.Err, syscall.EXDEV)
}
