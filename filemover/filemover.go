// Package filemover moves recordings from a local tree into a date-partitioned
// tree on a remote machine.
//
// A run discovers every matching file below the source directory, plans its
// destination from the date in its name, creates missing remote directories,
// uploads the bytes and only then deletes the local copy. Each file succeeds or
// fails on its own; the file that triggered the run is always left alone.
package filemover

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"recmover/moverr"
)

// Options configure a Mover.
type Options struct {
	SourceDir  string
	TargetDir  string
	Extensions []string
	DryRun     bool
	// Host only appears in log lines.
	Host string
}

// ProgressObserver receives upload progress for the file at path.
type ProgressObserver interface {
	Progress(path string, transferred, total int64)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(path string, transferred, total int64)

func (f ProgressFunc) Progress(path string, transferred, total int64) {
	f(path, transferred, total)
}

type nopProgress struct{}

func (nopProgress) Progress(string, int64, int64) {}

// Option customizes a Mover.
type Option func(m *Mover)

func WithLogger(logger *log.Logger) Option {
	return func(m *Mover) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithProgress(observer ProgressObserver) Option {
	return func(m *Mover) {
		if observer != nil {
			m.progress = observer
		}
	}
}

// WithRemoveFunc replaces os.Remove for deleting uploaded sources.
func WithRemoveFunc(remove func(string) error) Option {
	return func(m *Mover) {
		if remove != nil {
			m.remove = remove
		}
	}
}

// Mover runs one synchronization pass.
type Mover struct {
	opts     Options
	remote   Remote
	logger   *log.Logger
	progress ProgressObserver
	remove   func(string) error
	now      func() time.Time
}

// New builds a Mover working through remote.
func New(opts Options, remote Remote, options ...Option) *Mover {
	m := &Mover{
		opts:     opts,
		remote:   remote,
		logger:   discardLogger(),
		progress: nopProgress{},
		remove:   os.Remove,
		now:      time.Now,
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// Run processes every file discovered below the source directory, in discovery
// order, skipping trigger. Per-file failures are recorded in the report and do
// not stop the run. An error is returned only when discovery fails, ctx is
// cancelled or a file fails with a fatal kind such as a lost connection; the
// report then holds what happened so far.
func (m *Mover) Run(ctx context.Context, trigger string) (*Report, error) {
	report := &Report{
		Trigger: trigger,
		DryRun:  m.opts.DryRun,
		Started: m.now(),
	}
	defer func() { report.Finished = m.now() }()

	triggerPath, err := CanonicalPath(trigger)
	if err != nil {
		return report, moverr.Wrap(moverr.ErrLocalIO, "resolve trigger", trigger, err)
	}
	report.Trigger = triggerPath

	m.logger.Debug("New recording", "file", triggerPath)
	m.logger.Debug("Source base", "dir", m.opts.SourceDir)
	m.logger.Debug("Target base", "dir", m.opts.TargetDir)
	m.logger.Debug("Extensions", "list", m.opts.Extensions)
	m.logger.Debug("Dry run", "enabled", m.opts.DryRun)

	candidates, err := Discover(m.opts.SourceDir, m.opts.Extensions)
	if err != nil {
		return report, err
	}
	m.logger.Info("Files to move", "count", len(candidates))

	ensurer := NewDirEnsurer(m.remote, m.opts.DryRun, m.logger)
	defer func() { report.PlannedDirs = ensurer.Planned() }()

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if c.Path == triggerPath {
			m.logger.Debug("Skipping new recording", "file", c.Path)
			report.Outcomes = append(report.Outcomes, Outcome{
				Path:   c.Path,
				Size:   c.Size,
				Status: StatusSkippedTrigger,
			})
			continue
		}

		outcome := m.moveOne(ctx, ensurer, c)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Status == StatusFailed {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			// A lost connection fails every file after it; stop instead.
			if moverr.IsFatal(outcome.Err) {
				return report, outcome.Err
			}
			m.logger.Error("Move failed", "file", c.Path, "kind", outcome.Kind(), "err", outcome.Err)
		}
	}
	return report, nil
}

func (m *Mover) moveOne(ctx context.Context, ensurer *DirEnsurer, c Candidate) Outcome {
	out := Outcome{Path: c.Path, Size: c.Size}
	fail := func(err error) Outcome {
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	dest, err := Destination(c.Name, m.opts.TargetDir)
	if err != nil {
		return fail(err)
	}
	out.Destination = dest

	m.logger.Debug("Copying", "file", c.Path, "dest", fmt.Sprintf("%s:%s", m.opts.Host, dest))
	if err := ensurer.EnsureParent(dest); err != nil {
		return fail(err)
	}

	if m.opts.DryRun {
		out.Status = StatusWouldMove
		return out
	}

	err = m.remote.Put(ctx, c.Path, dest, func(transferred, total int64) {
		m.progress.Progress(c.Path, transferred, total)
	})
	if err != nil {
		if !moverr.Classified(err) {
			err = moverr.Wrap(moverr.ErrRemoteIO, "upload", dest, err)
		}
		return fail(err)
	}

	if err := m.verify(c.Path, dest); err != nil {
		return fail(err)
	}

	m.logger.Debug("Removing", "file", c.Path)
	if err := m.remove(c.Path); err != nil {
		return fail(moverr.Wrap(moverr.ErrLocalIO, "remove source", c.Path, err))
	}

	out.Status = StatusMoved
	m.logger.Info("Moved", "file", c.Name, "dest", dest)
	return out
}

// verify compares the uploaded size with the local file before the local copy
// may be removed.
func (m *Mover) verify(localPath, remotePath string) error {
	local, err := os.Stat(localPath)
	if err != nil {
		return moverr.Wrap(moverr.ErrLocalIO, "stat source", localPath, err)
	}
	remote, err := m.remote.Stat(remotePath)
	if err != nil {
		return moverr.Wrap(moverr.ErrRemoteIO, "stat upload", remotePath, err)
	}
	if remote.Size() != local.Size() {
		return moverr.Wrap(moverr.ErrRemoteIO, "verify upload", remotePath,
			fmt.Errorf("size mismatch: local %d bytes, remote %d bytes", local.Size(), remote.Size()))
	}
	return nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
