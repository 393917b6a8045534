package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/gopro-telemetry/config"
	"github.com/user/gopro-telemetry/deps"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  `Check that ffmpeg, ffprobe and the three GoPro converters named in the config are installed and executable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Checking dependencies...")
		fmt.Fprintln(out)

		tools := []deps.Tool{
			{Name: "ffmpeg", Path: "ffmpeg", InstallURL: deps.FfmpegInstallURL},
			{Name: "ffprobe", Path: "ffprobe", InstallURL: deps.FfmpegInstallURL},
		}
		cfg, err := config.Load(flags.config)
		if err != nil {
			fmt.Fprintf(out, "✗ config: %v\n", err)
		} else {
			fmt.Fprintf(out, "✓ config: %s\n", flags.config)
			tools = []deps.Tool{
				{Name: "ffmpeg", Path: cfg.FFmpeg, InstallURL: deps.FfmpegInstallURL},
				{Name: "ffprobe", Path: cfg.FFprobe, InstallURL: deps.FfmpegInstallURL},
				{Name: "to_gpx", Path: cfg.GoPro.ToGPX, InstallURL: deps.GoProUtilsInstallURL},
				{Name: "to_json", Path: cfg.GoPro.ToJSON, InstallURL: deps.GoProUtilsInstallURL},
				{Name: "gpmd_info", Path: cfg.GoPro.GPMDInfo, InstallURL: deps.GoProUtilsInstallURL},
			}
		}

		missing := make(map[string]bool)
		for _, derr := range deps.CheckAll(tools) {
			var de *deps.DependencyError
			if errors.As(derr, &de) {
				missing[de.Name] = true
			}
		}

		allGood := err == nil && len(missing) == 0
		for _, t := range tools {
			if missing[t.Name] {
				fmt.Fprintf(out, "✗ %s: NOT FOUND (%s)\n", t.Name, t.Path)
				fmt.Fprintf(out, "  Install from: %s\n", t.InstallURL)
				continue
			}
			fmt.Fprintf(out, "✓ %s: %s\n", t.Name, t.Path)
		}

		fmt.Fprintln(out)
		if !allGood {
			return errors.New("some dependencies are missing, please install them before extracting telemetry")
		}
		fmt.Fprintln(out, "All dependencies are installed!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
