package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/gopro-telemetry/config"
)

var Version = "0.1.0"

// flags holds every command-line flag. Run flags are shared by the root
// command and "file".
var flags struct {
	config      string
	verbose     bool
	reprocess   bool
	serial      bool
	timestamp   bool
	strictNames bool
	failFast    bool
	plain       bool
	yes         bool
	noJournal   bool
}

var rootCmd = &cobra.Command{
	Use:   "gopro-telemetry <dir>",
	Short: "Extract GPS and sensor telemetry from GoPro videos",
	Long: `gopro-telemetry extracts the telemetry track embedded in GoPro .MP4 files
and writes it next to each video.

For every video in <dir> it:
  - demuxes the GoPro metadata stream to <video>.bin
  - converts it to <video>.gpx and <video>.json
  - converts it to <video>_gps.csv, _gyro.csv, _accl.csv and _temp.csv

Artifacts that already exist are skipped unless --reprocess is given.
The converters are configured in config.yml.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDir(cmd, args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gopro-telemetry version %s\n", Version)
	},
}

// addRunFlags registers the flags that control a pipeline run.
func addRunFlags(c *cobra.Command) {
	f := c.Flags()
	f.BoolVar(&flags.reprocess, "reprocess", false, "regenerate artifacts that already exist")
	f.BoolVar(&flags.serial, "serial", false, "prefix file names with the camera serial")
	f.BoolVar(&flags.timestamp, "timestamp", false, "append the creation time to file names")
	f.BoolVar(&flags.strictNames, "strict-names", false, "reject files without a GoPro clip id in the name")
	f.BoolVar(&flags.plain, "plain", false, "print plain progress lines instead of the progress box")
	f.BoolVarP(&flags.yes, "yes", "y", false, "do not ask for confirmation")
	f.BoolVar(&flags.noJournal, "no-journal", false, "do not record the run in the journal")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.config, "config", config.DefaultPath, "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every tool invocation")

	addRunFlags(rootCmd)
	rootCmd.Flags().BoolVar(&flags.failFast, "fail-fast", false, "stop at the first video that fails")

	rootCmd.AddCommand(versionCmd)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
