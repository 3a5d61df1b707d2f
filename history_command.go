package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recmover/config"
	"recmover/journal"
)

func newHistoryCommand(opts *runOptions) *cobra.Command {
	var limit int
	var journalPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(opts, journalPath)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.Recent(limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 for all)")
	cmd.PersistentFlags().StringVar(&journalPath, "journal", "", "Journal file (defaults to app.journal)")
	cmd.AddCommand(newHistoryShowCommand(opts, &journalPath))
	return cmd
}

func newHistoryShowCommand(opts *runOptions, journalPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show every file of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(opts, *journalPath)
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.Get(strings.TrimSpace(args[0]))
			if errors.Is(err, journal.ErrRunNotFound) {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRun(rec))
			return nil
		},
	}
}

// openJournal opens the journal named by --journal, or app.journal from the
// config when the flag is empty.
func openJournal(opts *runOptions, flagPath string) (*journal.Journal, error) {
	path := strings.TrimSpace(flagPath)
	if path == "" {
		cfg, _, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		path = cfg.App.Journal
	} else {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("resolve journal path: %w", err)
		}
		path = expanded
	}
	if path == "" {
		return nil, errors.New("no journal configured (set app.journal or pass --journal)")
	}
	return journal.Open(path)
}

func renderHistory(runs []journal.RunRecord) string {
	spec := tableSpec{
		columns: []column{
			{header: "ID"},
			{header: "Started"},
			{header: "Trigger"},
			{header: "Moved", right: true},
			{header: "Skipped", right: true},
			{header: "Failed", right: true},
			{header: "Size", right: true},
			{header: "Duration", right: true},
			{header: "Note", maxWidth: 40},
		},
	}

	var moved, failed int
	var bytes int64
	for _, r := range runs {
		note := r.Error
		if r.DryRun {
			note = strings.TrimSpace("dry run " + note)
		}
		moved += r.Moved
		failed += r.Failed
		bytes += r.Bytes
		spec.rows = append(spec.rows, []string{
			r.ID,
			r.Started.Local().Format(time.DateTime),
			r.Trigger,
			strconv.Itoa(r.Moved),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			humanize.Bytes(uint64(r.Bytes)),
			r.Finished.Sub(r.Started).Round(time.Millisecond).String(),
			note,
		})
	}
	if len(runs) > 1 {
		spec.footer = []string{"", "", fmt.Sprintf("%d runs", len(runs)),
			strconv.Itoa(moved), "", strconv.Itoa(failed), humanize.Bytes(uint64(bytes))}
	}
	return renderTable(spec)
}

func renderRun(rec *journal.RunRecord) string {
	title := fmt.Sprintf("Run %s, %s, trigger %s", rec.ID, rec.Started.Local().Format(time.DateTime), rec.Trigger)
	if rec.DryRun {
		title += " (dry run)"
	}
	if rec.Error != "" {
		title += ": " + rec.Error
	}

	spec := tableSpec{
		title: title,
		columns: []column{
			{header: "File"},
			{header: "Status"},
			{header: "Size", right: true},
			{header: "Destination"},
			{header: "Error", maxWidth: 50},
		},
	}
	for _, f := range rec.Files {
		msg := f.Error
		if f.Kind != "" {
			msg = fmt.Sprintf("[%s] %s", f.Kind, f.Error)
		}
		spec.rows = append(spec.rows, []string{
			f.Path,
			f.Status,
			humanize.Bytes(uint64(f.Size)),
			f.Destination,
			msg,
		})
	}
	return renderTable(spec)
}
