package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/gopro-telemetry/media"
	"github.com/user/gopro-telemetry/media/mediatest"
	"github.com/user/gopro-telemetry/naming"
	"github.com/user/gopro-telemetry/pkg/fileutil"
)

var testTools = Toolchain{
	FFmpeg:   mediatest.FFmpeg,
	FFprobe:  mediatest.FFprobe,
	ToGPX:    mediatest.ToGPX,
	ToJSON:   mediatest.ToJSON,
	GPMDInfo: mediatest.GPMDInfo,
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("ftypmp42"), 0o644))
	return p
}

func newExtractor(t *testing.T, r *mediatest.Runner, path string, opts ...Option) *Extractor {
	t.Helper()
	e, err := New(context.Background(), path, testTools, append([]Option{WithRunner(r)}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestArtifactsFor(t *testing.T) {
	a := ArtifactsFor("/videos/GX010123.MP4")
	assert.Equal(t, Artifacts{
		Sidecar: "/videos/GX010123.MP4.bin",
		GPX:     "/videos/GX010123.MP4.gpx",
		JSON:    "/videos/GX010123.MP4.json",
		GPS:     "/videos/GX010123.MP4_gps.csv",
		Gyro:    "/videos/GX010123.MP4_gyro.csv",
		Accl:    "/videos/GX010123.MP4_accl.csv",
		Temp:    "/videos/GX010123.MP4_temp.csv",
	}, a)
	assert.Len(t, a.All(), 7)
}

func TestNew_Validation(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{}

	_, err := New(context.Background(), filepath.Join(dir, "missing.MP4"), testTools, WithRunner(r))
	assert.ErrorIs(t, err, ErrNotVideo)

	mov := writeVideo(t, dir, "clip.MOV")
	_, err = New(context.Background(), mov, testTools, WithRunner(r))
	assert.ErrorIs(t, err, ErrNotVideo)

	_, err = New(context.Background(), dir, testTools, WithRunner(r))
	assert.ErrorIs(t, err, ErrNotVideo)

	assert.Empty(t, r.Calls(), "invalid input must not reach ffprobe")
}

func TestNew_NoTelemetryStream(t *testing.T) {
	dir := t.TempDir()
	p := writeVideo(t, dir, "phone.mp4")
	r := &mediatest.Runner{Probes: map[string]string{p: mediatest.PlainProbe}}

	_, err := New(context.Background(), p, testTools, WithRunner(r))
	assert.ErrorIs(t, err, ErrNoTelemetryStream)
}

func TestNew_StrictNames(t *testing.T) {
	dir := t.TempDir()
	p := writeVideo(t, dir, "holiday.MP4")

	_, err := New(context.Background(), p, testTools, WithRunner(&mediatest.Runner{}), WithStrictNames(true))
	assert.ErrorIs(t, err, naming.ErrNoClipID)

	e := newExtractor(t, &mediatest.Runner{}, p)
	assert.Equal(t, "holiday", e.Name.BaseID)
}

func TestNew_LocatesStream(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t, &mediatest.Runner{}, writeVideo(t, dir, "GX010123.MP4"))

	assert.Equal(t, 3, e.StreamIndex)
	assert.Equal(t, "GX010123", e.Name.BaseID)
	assert.Equal(t, dir, e.Dir())
}

func TestExtractAll_ThenIdempotent(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))
	r.Reset()

	results, err := e.ExtractAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, res := range results {
		assert.Equal(t, StatusDone, res.Status, res.Step)
	}
	for _, p := range e.Artifacts().All() {
		assert.FileExists(t, p)
	}
	assert.Len(t, r.Calls(), 4)

	demux := r.CallsTo(mediatest.FFmpeg)
	require.Len(t, demux, 1)
	assert.Equal(t, media.DemuxArgs(e.VideoPath, 3, fileutil.PartialPath(e.Artifacts().Sidecar)), demux[0].Args)

	r.Reset()
	results, err = e.ExtractAll(context.Background())
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, StatusSkipped, res.Status, res.Step)
	}
	assert.Empty(t, r.Calls(), "second run must not invoke any tool")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 8, "video plus seven artifacts, no working directories left")
}

func TestExtractAll_Reprocess(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{}
	p := writeVideo(t, dir, "GX010123.MP4")

	_, err := newExtractor(t, r, p).ExtractAll(context.Background())
	require.NoError(t, err)

	r.Reset()
	results, err := newExtractor(t, r, p, WithReprocess(true)).ExtractAll(context.Background())
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, StatusDone, res.Status)
	}
	assert.Len(t, r.Calls(), 5, "probe plus four tools")
}

func TestCSV_RerunsWhenOneFileMissing(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))
	_, err := e.ExtractAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(e.Artifacts().Temp))
	r.Reset()

	res, err := e.CSV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDone, res.Status)
	assert.Len(t, r.CallsTo(mediatest.GPMDInfo), 1)
	assert.True(t, fileutil.AllExist(e.Artifacts().CSV()...))
}

func TestCSV_ToolRunsInPrivateDir(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))
	_, err := e.Demux(context.Background())
	require.NoError(t, err)

	_, err = e.CSV(context.Background())
	require.NoError(t, err)

	calls := r.CallsTo(mediatest.GPMDInfo)
	require.Len(t, calls, 1)
	assert.Equal(t, dir, filepath.Dir(calls[0].Dir))
	assert.NoDirExists(t, calls[0].Dir)
	assert.Equal(t, []string{"-i", e.Artifacts().Sidecar}, calls[0].Args)
}

func TestCSV_MissingToolOutput(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{SkipCSV: []string{"temp.csv"}}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))

	_, err := e.ExtractAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temp.csv")
}

func TestConvert_RequiresSidecar(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t, &mediatest.Runner{}, writeVideo(t, dir, "GX010123.MP4"))

	_, err := e.GPX(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = e.CSV(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractAll_ToolFailureAborts(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{Fail: map[string]bool{mediatest.ToGPX: true}}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))

	results, err := e.ExtractAll(context.Background())
	require.Error(t, err)

	var te *media.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, mediatest.ToGPX, te.Tool)
	assert.Len(t, results, 1, "only demux completed")
	assert.Empty(t, r.CallsTo(mediatest.ToJSON), "later steps do not run")
	assert.NoFileExists(t, e.Artifacts().GPX)
}

func TestDemux_InterruptedToolLeavesNoSidecar(t *testing.T) {
	dir := t.TempDir()
	p := writeVideo(t, dir, "GX010123.MP4")
	e := newExtractor(t, &mediatest.Runner{Truncate: map[string]bool{mediatest.FFmpeg: true}}, p)
	sidecar := e.Artifacts().Sidecar

	_, err := e.Demux(context.Background())
	var te *media.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 255, te.ExitCode)
	assert.NoFileExists(t, sidecar)
	assert.NoFileExists(t, fileutil.PartialPath(sidecar))

	r := &mediatest.Runner{}
	res, err := newExtractor(t, r, p).Demux(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDone, res.Status)
	assert.Len(t, r.CallsTo(mediatest.FFmpeg), 1)
	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Equal(t, "GPMF-sidecar", string(data))
}

func TestConvert_FailedReprocessRemovesOutput(t *testing.T) {
	dir := t.TempDir()
	p := writeVideo(t, dir, "GX010123.MP4")
	_, err := newExtractor(t, &mediatest.Runner{}, p).ExtractAll(context.Background())
	require.NoError(t, err)

	r := &mediatest.Runner{Truncate: map[string]bool{mediatest.ToGPX: true}}
	e := newExtractor(t, r, p, WithReprocess(true))
	_, err = e.GPX(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, e.Artifacts().GPX)
	assert.NoFileExists(t, fileutil.PartialPath(e.Artifacts().GPX))

	r = &mediatest.Runner{}
	res, err := newExtractor(t, r, p).GPX(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDone, res.Status, "missing output is regenerated")
	assert.Len(t, r.CallsTo(mediatest.ToGPX), 1)
}

func TestRenameWithSerial(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{Serial: "C3261324598765"}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))

	_, err := e.Demux(context.Background())
	require.NoError(t, err)

	res, err := e.RenameWithSerial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDone, res.Status)

	want := filepath.Join(dir, "C3261324598765_GX010123.MP4")
	assert.Equal(t, want, e.VideoPath)
	assert.FileExists(t, want)
	assert.FileExists(t, want+".bin", "existing sidecar follows the video")
	assert.NoFileExists(t, filepath.Join(dir, "GX010123.MP4"))
	assert.Equal(t, "C3261324598765", e.Name.Serial)
	assert.Equal(t, "HERO7 Black", e.Name.Model)
	assert.Equal(t, "GX010123", e.Name.BaseID)

	r.Reset()
	res, err = e.RenameWithSerial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Empty(t, r.Calls())
}

func TestRenameWithSerial_UnknownPrefixIsStable(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{Serial: "C9999324500001"}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010001.MP4"))

	res, err := e.RenameWithSerial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDone, res.Status)
	renamed := filepath.Join(dir, "C9999324500001_GX010001.MP4")
	assert.Equal(t, renamed, e.VideoPath)
	assert.Equal(t, "C9999324500001", e.Name.Serial)
	assert.Empty(t, e.Name.Model)

	r.Reset()
	again := newExtractor(t, r, renamed)
	r.Reset()
	res, err = again.RenameWithSerial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Empty(t, r.CallsTo(mediatest.FFmpeg), "serial in the name is not read again")
	assert.Equal(t, renamed, again.VideoPath)
}

func TestRenameWithSerial_ArtifactConflictKeepsVideoPath(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{Serial: "C3261324598765"}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))
	_, err := e.Demux(context.Background())
	require.NoError(t, err)
	renamed := filepath.Join(dir, "C3261324598765_GX010123.MP4")
	writeVideo(t, dir, "C3261324598765_GX010123.MP4.bin")

	_, err = e.RenameWithSerial(context.Background())
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Equal(t, renamed, e.VideoPath, "extractor follows the moved video")
	assert.FileExists(t, renamed)
	assert.Equal(t, "C3261324598765", e.Name.Serial)
}

func TestRenameWithSerial_NoDescriptorStream(t *testing.T) {
	dir := t.TempDir()
	p := writeVideo(t, dir, "GX010123.MP4")
	probe := `{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"data","codec_tag_string":"gpmd"}],"format":{}}`
	r := &mediatest.Runner{Probes: map[string]string{p: probe}}
	e := newExtractor(t, r, p)

	_, err := e.RenameWithSerial(context.Background())
	assert.ErrorIs(t, err, media.ErrNoSerial)
	assert.FileExists(t, p)
}

func TestRenameWithSerial_TargetExists(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{Serial: "C3261324598765"}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))
	writeVideo(t, dir, "C3261324598765_GX010123.MP4")

	_, err := e.RenameWithSerial(context.Background())
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Equal(t, filepath.Join(dir, "GX010123.MP4"), e.VideoPath)
}

func TestAppendTimestamp(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t, &mediatest.Runner{}, writeVideo(t, dir, "GX010123.MP4"))

	res, err := e.AppendTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, filepath.Join(dir, "GX010123_20210704T093015.MP4"), e.VideoPath)

	res, err = e.AppendTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
}

func TestAppendTimestamp_NoCreationTime(t *testing.T) {
	dir := t.TempDir()
	p := writeVideo(t, dir, "GX010123.MP4")
	probe := `{"streams":[{"index":3,"codec_type":"data","codec_tag_string":"gpmd"}],"format":{"tags":{}}}`
	e := newExtractor(t, &mediatest.Runner{Probes: map[string]string{p: probe}}, p)

	_, err := e.AppendTimestamp(context.Background())
	assert.ErrorIs(t, err, ErrNoCreationTime)
}

func TestPipeline_Order(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t, &mediatest.Runner{}, writeVideo(t, dir, "GX010123.MP4"))

	var steps []Step
	for _, st := range e.Pipeline(true, true) {
		steps = append(steps, st.Step)
	}
	assert.Equal(t, []Step{StepSerial, StepTimestamp, StepDemux, StepGPX, StepJSON, StepCSV}, steps)
	assert.Len(t, e.Pipeline(false, false), 4)
}

func TestPipeline_RenamesBeforeExtraction(t *testing.T) {
	dir := t.TempDir()
	r := &mediatest.Runner{Serial: "C3441324612345"}
	e := newExtractor(t, r, writeVideo(t, dir, "GX010123.MP4"))

	for _, st := range e.Pipeline(true, true) {
		_, err := st.Run(context.Background())
		require.NoError(t, err, st.Step)
	}

	final := filepath.Join(dir, "C3441324612345_GX010123_20210704T093015.MP4")
	assert.Equal(t, final, e.VideoPath)
	for _, p := range ArtifactsFor(final).All() {
		assert.FileExists(t, p)
	}
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("GX010123.MP4"))
	assert.True(t, IsVideo("gx010123.mp4"))
	assert.False(t, IsVideo("GX010123.LRV"))
	assert.False(t, IsVideo("GX010123.MP4.bin"))
}
