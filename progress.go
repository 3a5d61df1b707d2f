package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"recmover/filemover"
)

// barObserver draws one progress bar per file being uploaded.
type barObserver struct {
	w       io.Writer
	current string
	bar     *progressbar.ProgressBar
}

// newProgressObserver returns a bar observer when verbose output goes to a
// terminal, and nil otherwise so the mover stays silent.
func newProgressObserver(w io.Writer, verbose bool) *barObserver {
	if !verbose || !isTerminal(w) {
		return nil
	}
	return &barObserver{w: w}
}

func (o *barObserver) Progress(path string, transferred, total int64) {
	if path != o.current || o.bar == nil {
		o.Finish()
		o.current = path
		o.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(o.w),
			progressbar.OptionSetDescription(filepath.Base(path)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(o.w, "\n") }),
		)
	}
	_ = o.bar.Set64(transferred)
}

// Finish closes the bar of the last file, if any.
func (o *barObserver) Finish() {
	if o == nil || o.bar == nil {
		return
	}
	if !o.bar.IsFinished() {
		_ = o.bar.Finish()
	}
	o.bar = nil
	o.current = ""
}

func (o *barObserver) options() []filemover.Option {
	if o == nil {
		return nil
	}
	return []filemover.Option{filemover.WithProgress(o)}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
