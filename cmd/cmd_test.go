package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/gopro-telemetry/config"
	"github.com/user/gopro-telemetry/db"
	"github.com/user/gopro-telemetry/media"
	"github.com/user/gopro-telemetry/media/mediatest"
	"github.com/user/gopro-telemetry/pkg/fileutil"
)

const testConfig = `
gopro:
  to_gpx: gopro2gpx
  to_json: gopro2json
  gpmd_info: gpmdinfo
log_level: warn
`

// setup installs a fake runner and writes a config file into a fresh
// directory holding the given videos.
func setup(t *testing.T, videos ...string) (dir, cfgPath string, fake *mediatest.Runner) {
	t.Helper()
	color.NoColor = true

	fake = &mediatest.Runner{Serial: "C3441324567890"}
	prevRunner, prevTerminal := newRunner, isTerminal
	newRunner = func(*slog.Logger) media.Runner { return fake }
	isTerminal = func(*os.File) bool { return false }
	t.Cleanup(func() {
		newRunner, isTerminal = prevRunner, prevTerminal
	})

	dir = t.TempDir()
	for _, v := range videos {
		require.NoError(t, os.WriteFile(filepath.Join(dir, v), []byte("ftypmp42"), 0o644))
	}
	cfgPath = filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))
	return dir, cfgPath, fake
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	flags.config = config.DefaultPath
	flags.verbose, flags.reprocess, flags.serial, flags.timestamp = false, false, false, false
	flags.strictNames, flags.failFast, flags.plain, flags.yes, flags.noJournal = false, false, false, false, false
	historyLimit = 50

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCmd_ProcessesDirectory(t *testing.T) {
	dir, cfg, fake := setup(t, "GX010123.MP4", "GX020123.MP4", "notes.txt")

	_, stderr, err := runCLI(t, dir, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Processing 2 videos")
	assert.Contains(t, stderr, "2 processed, 0 skipped, 0 failed")

	for _, name := range []string{
		"GX010123.MP4.bin", "GX010123.MP4.gpx", "GX010123.MP4.json",
		"GX010123.MP4_gps.csv", "GX010123.MP4_gyro.csv", "GX010123.MP4_accl.csv", "GX010123.MP4_temp.csv",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.True(t, fileutil.Exists(db.PathFor(dir)), "journal written")

	fake.Reset()
	_, stderr, err = runCLI(t, dir, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, "0 processed, 2 skipped, 0 failed")
	assert.Empty(t, fake.CallsTo(mediatest.FFmpeg))
}

func TestRootCmd_FailedVideoSetsError(t *testing.T) {
	dir, cfg, fake := setup(t, "GX010123.MP4", "GX020123.MP4")
	fake.Fail = map[string]bool{mediatest.ToJSON: true}

	_, stderr, err := runCLI(t, dir, "--config", cfg, "--no-journal")
	require.Error(t, err)
	assert.Equal(t, "2 of 2 videos failed", err.Error())
	assert.Contains(t, stderr, "json: convert to json: gopro2json exited with status 1")
	assert.NoFileExists(t, db.PathFor(dir))
}

func TestRootCmd_FailFast(t *testing.T) {
	dir, cfg, fake := setup(t, "GX010123.MP4", "GX020123.MP4")
	fake.Fail = map[string]bool{mediatest.FFmpeg: true}

	_, _, err := runCLI(t, dir, "--config", cfg, "--fail-fast", "--no-journal")
	require.Error(t, err)
	assert.Equal(t, "1 of 1 videos failed", err.Error())
}

func TestRootCmd_EmptyDirectory(t *testing.T) {
	dir, cfg, _ := setup(t)

	_, stderr, err := runCLI(t, dir, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, "No .MP4 files in")
}

func TestRootCmd_MissingConfig(t *testing.T) {
	dir, _, _ := setup(t, "GX010123.MP4")

	_, _, err := runCLI(t, dir, "--config", filepath.Join(dir, "absent.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileCmd_SerialRename(t *testing.T) {
	dir, cfg, _ := setup(t, "GX010123.MP4")

	_, stderr, err := runCLI(t, "file", filepath.Join(dir, "GX010123.MP4"), "--config", cfg, "--serial")
	require.NoError(t, err)
	assert.Contains(t, stderr, "1 processed")
	assert.FileExists(t, filepath.Join(dir, "C3441324567890_GX010123.MP4"))
	assert.FileExists(t, filepath.Join(dir, "C3441324567890_GX010123.MP4.gpx"))
	assert.NoFileExists(t, filepath.Join(dir, "GX010123.MP4"))
}

func TestHistoryCmd(t *testing.T) {
	dir, cfg, _ := setup(t, "GX010123.MP4")

	stdout, _, err := runCLI(t, "history", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No journal in")

	_, _, err = runCLI(t, dir, "--config", cfg)
	require.NoError(t, err)

	stdout, _, err = runCLI(t, "history", dir, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "WHEN")
	assert.Contains(t, stdout, "GX010123.MP4")
	assert.Contains(t, stdout, "csv")
	assert.Contains(t, stdout, "(+3)")
	assert.NotContains(t, stdout, "demux")
}

func TestProbeCmd(t *testing.T) {
	dir, cfg, _ := setup(t, "GX010123.MP4")

	stdout, _, err := runCLI(t, "probe", filepath.Join(dir, "GX010123.MP4"), "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stdout, "GX010123 (quality X, chapter 1, media 123)")
	assert.Contains(t, stdout, "C3441324567890 (HERO9 Black)")
	assert.Contains(t, stdout, "2021-07-04 09:30:15 UTC")
	assert.Contains(t, stdout, "0:01:01")
	assert.Contains(t, stdout, "stream 3")
	assert.Contains(t, stdout, "stream 4")
	assert.Contains(t, stdout, "gpmd")
	assert.Contains(t, stdout, "- GX010123.MP4.gpx")
}

func TestProbeCmd_WithoutConfig(t *testing.T) {
	dir, _, fake := setup(t, "clip.MP4")
	fake.Probes = map[string]string{filepath.Join(dir, "clip.MP4"): mediatest.PlainProbe}

	stdout, _, err := runCLI(t, "probe", filepath.Join(dir, "clip.MP4"), "--config", filepath.Join(dir, "absent.yml"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "clip (no GoPro clip id)")
	assert.Contains(t, stdout, "none")
	assert.Contains(t, stdout, "Serial:")
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gopro-telemetry version "+Version+"\n", stdout)
}

func TestNewLogger_InteractiveIsSilent(t *testing.T) {
	cfg := &config.Config{LogLevel: "info"}

	var buf bytes.Buffer
	newLogger(&buf, cfg, true).Error("step failed", "step", "json")
	assert.Empty(t, buf.String())

	newLogger(&buf, cfg, false).Error("step failed", "step", "json")
	assert.Contains(t, buf.String(), "step failed")
}

func TestDoctorCmd_ReportsMissingTools(t *testing.T) {
	_, cfg, _ := setup(t)
	t.Setenv("PATH", t.TempDir())

	stdout, _, err := runCLI(t, "doctor", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "some dependencies are missing")
	assert.Contains(t, stdout, "✓ config: "+cfg)
	assert.Contains(t, stdout, "✗ ffmpeg: NOT FOUND (ffmpeg)")
	assert.Contains(t, stdout, "✗ gpmd_info: NOT FOUND (gpmdinfo)")
	assert.Contains(t, stdout, "Install from: ")
	assert.NotContains(t, stdout, "All dependencies are installed!")
}
