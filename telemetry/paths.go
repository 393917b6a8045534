package telemetry

import (
	"path/filepath"
)

// Artifacts are the files derived from one video. Every path is a function
// of the video path alone.
type Artifacts struct {
	Sidecar string
	GPX     string
	JSON    string
	GPS     string
	Gyro    string
	Accl    string
	Temp    string
}

// csvOutputs pairs the file gpmdinfo writes into its working directory with
// the artifact field it is moved to.
var csvOutputs = []struct {
	name string
	dst  func(Artifacts) string
}{
	{"gps.csv", func(a Artifacts) string { return a.GPS }},
	{"gyro.csv", func(a Artifacts) string { return a.Gyro }},
	{"accl.csv", func(a Artifacts) string { return a.Accl }},
	{"temp.csv", func(a Artifacts) string { return a.Temp }},
}

// ArtifactsFor computes artifact paths for videoPath. The full filename,
// extension included, is the stem: GX010123.MP4 -> GX010123.MP4.gpx.
func ArtifactsFor(videoPath string) Artifacts {
	dir := filepath.Dir(videoPath)
	name := filepath.Base(videoPath)
	return Artifacts{
		Sidecar: filepath.Join(dir, name+".bin"),
		GPX:     filepath.Join(dir, name+".gpx"),
		JSON:    filepath.Join(dir, name+".json"),
		GPS:     filepath.Join(dir, name+"_gps.csv"),
		Gyro:    filepath.Join(dir, name+"_gyro.csv"),
		Accl:    filepath.Join(dir, name+"_accl.csv"),
		Temp:    filepath.Join(dir, name+"_temp.csv"),
	}
}

// CSV returns the four CSV artifact paths.
func (a Artifacts) CSV() []string {
	return []string{a.GPS, a.Gyro, a.Accl, a.Temp}
}

// All returns every artifact path, sidecar first.
func (a Artifacts) All() []string {
	return append([]string{a.Sidecar, a.GPX, a.JSON}, a.CSV()...)
}
