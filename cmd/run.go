package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/user/gopro-telemetry/batch"
	"github.com/user/gopro-telemetry/config"
	"github.com/user/gopro-telemetry/db"
	"github.com/user/gopro-telemetry/media"
	"github.com/user/gopro-telemetry/naming"
	"github.com/user/gopro-telemetry/telemetry"
	"github.com/user/gopro-telemetry/tui"
	"github.com/user/gopro-telemetry/tui/forms"
	"golang.org/x/term"
)

// newRunner builds the process runner; tests replace it.
var newRunner = func(logger *slog.Logger) media.Runner {
	return media.ExecRunner{Logger: logger}
}

// isTerminal reports whether f is attached to a terminal; tests replace it.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// session is the loaded configuration for one command.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	tools   telemetry.Toolchain
	serials *naming.SerialTable
}

// interactive reports whether the progress box and prompts can be used.
// Verbose runs log every tool call, which would tear the box apart.
func interactive() bool {
	return !flags.plain && !flags.verbose && isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// newLogger builds the stderr logger. In interactive mode nothing is logged;
// failures are listed in the summary instead.
func newLogger(w io.Writer, cfg *config.Config, quiet bool) *slog.Logger {
	if quiet {
		w = io.Discard
	}
	level, _ := cfg.Level()
	if flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadSession(stderr io.Writer, quiet bool) (*session, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	serials := naming.DefaultSerials()
	for _, sp := range cfg.SerialPrefixes {
		serials.Add(sp.Prefix, sp.Model)
	}
	return &session{
		cfg:     cfg,
		logger:  newLogger(stderr, cfg, quiet),
		tools:   telemetry.ToolchainFromConfig(cfg),
		serials: serials,
	}, nil
}

// options builds the batch options; journal may be nil.
func (s *session) options(journal *db.Journal) batch.Options {
	opts := batch.Options{
		Tools: s.tools,
		Extract: []telemetry.Option{
			telemetry.WithRunner(newRunner(s.logger)),
			telemetry.WithReprocess(flags.reprocess),
			telemetry.WithSerials(s.serials),
			telemetry.WithStrictNames(flags.strictNames),
		},
		Serial:    flags.serial,
		Timestamp: flags.timestamp,
		FailFast:  flags.failFast,
		Logger:    s.logger,
	}
	if journal != nil {
		opts.Journal = journal
	}
	return opts
}

// openJournal opens the journal for dir unless it is disabled. A journal
// that cannot be opened is logged and the run continues without it.
func (s *session) openJournal(dir string) *db.Journal {
	if flags.noJournal || !s.cfg.JournalEnabled() {
		return nil
	}
	j, err := db.OpenJournal(dir)
	if err != nil {
		s.logger.Warn("journal disabled", "err", err)
		return nil
	}
	return j
}

func runDir(cmd *cobra.Command, dir string) error {
	files, err := batch.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No %s files in %s\n", telemetry.VideoExt, dir)
		return nil
	}
	return runFiles(cmd, dir, files)
}

func runFiles(cmd *cobra.Command, dir string, files []string) error {
	tty := interactive()
	s, err := loadSession(cmd.ErrOrStderr(), tty)
	if err != nil {
		return err
	}

	if flags.reprocess && tty && !flags.yes {
		confirm := false
		if err := forms.NewConfirmReprocessForm(len(files), &confirm).Run(); err != nil {
			return fmt.Errorf("confirmation: %w", err)
		}
		if !confirm {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
			return nil
		}
	}

	journal := s.openJournal(dir)
	if journal != nil {
		defer journal.Close()
	}
	opts := s.options(journal)

	var rep batch.Report
	if tty {
		rep, err = tui.Run(cmd.Context(), files, opts)
		tui.WriteSummary(cmd.ErrOrStderr(), rep)
	} else {
		rep, err = batch.Run(cmd.Context(), files, opts, tui.NewPlainObserver(cmd.ErrOrStderr()))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted after %d of %d videos", len(rep.Files), len(files))
		}
		return err
	}
	return rep.Err()
}

var fileCmd = &cobra.Command{
	Use:   "file <video>",
	Short: "Extract telemetry from a single video",
	Long:  `Run the extraction pipeline on one .MP4 file. Artifacts are written next to the video.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		return runFiles(cmd, filepath.Dir(path), []string{path})
	},
}

func init() {
	addRunFlags(fileCmd)
	rootCmd.AddCommand(fileCmd)
}
