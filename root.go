package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"recmover/config"
	"recmover/filemover"
	"recmover/journal"
	"recmover/lock"
	"recmover/transfer"
)

type runOptions struct {
	verbose     bool
	dryRun      bool
	failOnError bool
	configPath  string
	lockPath    string
}

func newRootCommand() *cobra.Command {
	opts := &runOptions{lockPath: lock.DefaultPath()}

	rootCmd := &cobra.Command{
		Use:   "recmover [flags] FILE",
		Short: "Move finished recordings to a remote machine, organized by date",
		Long: `recmover moves every recording below app.base_source_dir to
<base_target_dir>/YYYY/MM/DD/ on the configured ssh host and deletes the local
copy once the upload is verified. FILE is the recording that triggered the run;
it is still being written and is left alone.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, args[0])
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every step and show upload progress")
	rootCmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "d", false, "Report what would be moved without touching anything")
	rootCmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false, "Exit non-zero when any file fails to move")
	rootCmd.Flags().StringVar(&opts.lockPath, "lock-file", opts.lockPath, "Single-instance lock file")

	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	return rootCmd
}

// runMove performs one run: lock, config, connect, move, report. Per-file
// failures only produce an error with --fail-on-error.
func runMove(ctx context.Context, out, errOut io.Writer, opts *runOptions, trigger string) error {
	instance, err := lock.Acquire(opts.lockPath)
	if err != nil {
		return err
	}
	defer instance.Release()

	cfg, cfgPath, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(errOut, cfg.Logging, opts.verbose)
	if err != nil {
		return err
	}
	logger.Debug("Loaded config", "path", cfgPath)

	session, err := transfer.Open(ctx, cfg.SSH, transfer.WithLogger(logger))
	if err != nil {
		recordRun(cfg.App.Journal, nil, trigger, err, logger)
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Closing session", "err", err)
		}
	}()

	progress := newProgressObserver(out, opts.verbose)
	moverOpts := append([]filemover.Option{filemover.WithLogger(logger)}, progress.options()...)
	mover := filemover.New(filemover.Options{
		SourceDir:  cfg.App.BaseSourceDir,
		TargetDir:  cfg.App.BaseTargetDir,
		Extensions: cfg.App.FileExtensions,
		DryRun:     opts.dryRun,
		Host:       cfg.SSH.Host,
	}, session, moverOpts...)

	report, runErr := mover.Run(ctx, trigger)
	progress.Finish()
	if report != nil {
		fmt.Fprint(out, renderSummary(report))
	}
	recordRun(cfg.App.Journal, report, trigger, runErr, logger)
	if runErr != nil {
		return runErr
	}

	if failed := len(report.Failures()); failed > 0 && opts.failOnError {
		return fmt.Errorf("%d file(s) failed to move", failed)
	}
	return nil
}

// recordRun appends the run to the journal when one is configured. Journal
// problems are logged and never change the outcome of the run.
func recordRun(path string, report *filemover.Report, trigger string, runErr error, logger *log.Logger) {
	if path == "" {
		return
	}
	j, err := journal.Open(path)
	if err != nil {
		logger.Warn("Journal unavailable", "err", err)
		return
	}
	defer j.Close()

	rec := journal.FromReport(report, runErr)
	if rec.Trigger == "" {
		rec.Trigger = trigger
	}
	if err := j.Save(rec); err != nil {
		logger.Warn("Saving run to journal", "err", err)
		return
	}
	logger.Debug("Recorded run", "id", rec.ID, "journal", path)
}
