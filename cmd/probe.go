package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/user/gopro-telemetry/config"
	"github.com/user/gopro-telemetry/media"
	"github.com/user/gopro-telemetry/naming"
	"github.com/user/gopro-telemetry/pkg/fileutil"
	"github.com/user/gopro-telemetry/pkg/timeutil"
	"github.com/user/gopro-telemetry/telemetry"
)

var probeCmd = &cobra.Command{
	Use:   "probe <video>",
	Short: "Show the streams and identifiers of a video",
	Long: `Probe a video with ffprobe and print its streams, the telemetry and
descriptor stream indexes, the parsed clip id, the camera serial and which
artifacts already exist. Only ffmpeg and ffprobe are needed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to access video file: %w", err)
		}

		cfg, err := probeConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cmd.ErrOrStderr(), cfg, false)
		runner := newRunner(logger)

		p, err := media.ProbeFile(cmd.Context(), runner, cfg.FFprobe, path)
		if err != nil {
			return err
		}

		serials := naming.DefaultSerials()
		for _, sp := range cfg.SerialPrefixes {
			serials.Add(sp.Prefix, sp.Model)
		}
		name := naming.Parse(path, serials)

		serial, model := name.Serial, name.Model
		if serial == "" {
			if fdsc, ok := p.StreamByTag(media.TagDescriptor); ok {
				if s, err := media.ReadSerial(cmd.Context(), runner, cfg.FFmpeg, path, fdsc.Index); err == nil {
					serial = s
					model, _ = serials.Lookup(s)
				} else {
					logger.Debug("serial not readable", "err", err)
				}
			}
		}

		writeProbe(cmd.OutOrStdout(), path, info.Size(), p, name, serial, model)
		return nil
	},
}

// probeConfig loads the config when present. probe only needs ffmpeg and
// ffprobe, so a missing file falls back to the binaries on PATH.
func probeConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.config)
	if errors.Is(err, fs.ErrNotExist) {
		return &config.Config{FFmpeg: "ffmpeg", FFprobe: "ffprobe", LogLevel: "info"}, nil
	}
	return cfg, err
}

func writeProbe(out io.Writer, path string, size int64, p *media.Probe, name naming.Name, serial, model string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "File:\t%s (%s)\n", filepath.Base(path), humanize.Bytes(uint64(size)))

	if name.Clip != nil {
		c := name.Clip
		if c.Legacy {
			fmt.Fprintf(w, "Clip:\t%s (chapter %d, media %d)\n", c.ID, c.Chapter, c.MediaID)
		} else {
			fmt.Fprintf(w, "Clip:\t%s (quality %s, chapter %d, media %d)\n", c.ID, c.Quality, c.Chapter, c.MediaID)
		}
	} else {
		fmt.Fprintf(w, "Clip:\t%s (no GoPro clip id)\n", name.BaseID)
	}

	switch {
	case serial == "":
		fmt.Fprintf(w, "Serial:\t-\n")
	case model == "":
		fmt.Fprintf(w, "Serial:\t%s (unknown camera)\n", serial)
	default:
		fmt.Fprintf(w, "Serial:\t%s (%s)\n", serial, model)
	}

	if t, ok := p.CreationTime(); ok {
		fmt.Fprintf(w, "Created:\t%s\n", t.Format("2006-01-02 15:04:05 MST"))
	} else {
		fmt.Fprintf(w, "Created:\t-\n")
	}
	fmt.Fprintf(w, "Duration:\t%s\n", timeutil.FormatTime(p.Duration().Seconds()))

	if s, ok := p.TelemetryStream(); ok {
		fmt.Fprintf(w, "Telemetry:\tstream %d\n", s.Index)
	} else {
		fmt.Fprintf(w, "Telemetry:\tnone\n")
	}
	if s, ok := p.StreamByTag(media.TagDescriptor); ok {
		fmt.Fprintf(w, "Descriptor:\tstream %d\n", s.Index)
	}
	w.Flush()

	fmt.Fprintln(out, "\nStreams:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  INDEX\tTYPE\tCODEC\tTAG\tHANDLER")
	for _, s := range p.Streams {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\n", s.Index, s.CodecType, s.CodecName, s.CodecTagString, s.HandlerName())
	}
	w.Flush()

	fmt.Fprintln(out, "\nArtifacts:")
	for _, a := range telemetry.ArtifactsFor(path).All() {
		mark := "-"
		if fileutil.Exists(a) {
			mark = "✓"
		}
		fmt.Fprintf(out, "  %s %s\n", mark, filepath.Base(a))
	}
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
