package filemover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"recmover/moverr"
)

// Remote is the file-transfer channel the mover works through.
type Remote interface {
	Stat(p string) (fs.FileInfo, error)
	Mkdir(p string) error
	// Put copies localPath to remotePath, calling progress as bytes go out.
	Put(ctx context.Context, localPath, remotePath string, progress func(transferred, total int64)) error
}

// DirEnsurer creates missing remote directories, parents first. Directories it
// has already seen or created are remembered for the lifetime of the value.
type DirEnsurer struct {
	remote  Remote
	dryRun  bool
	logger  *log.Logger
	known   map[string]struct{}
	planned []string
}

// NewDirEnsurer returns an ensurer working through remote. In dry-run mode it
// only stats; directories it would create are recorded in Planned.
func NewDirEnsurer(remote Remote, dryRun bool, logger *log.Logger) *DirEnsurer {
	if logger == nil {
		logger = discardLogger()
	}
	return &DirEnsurer{
		remote: remote,
		dryRun: dryRun,
		logger: logger,
		known:  make(map[string]struct{}),
	}
}

// EnsureParent makes sure every directory above the remote file path exists.
func (e *DirEnsurer) EnsureParent(filePath string) error {
	return e.Ensure(path.Dir(filePath))
}

// Ensure makes sure dir and all of its ancestors exist.
func (e *DirEnsurer) Ensure(dir string) error {
	for _, p := range Ancestors(dir) {
		if _, ok := e.known[p]; ok {
			continue
		}
		if err := e.ensureOne(p); err != nil {
			return err
		}
		e.known[p] = struct{}{}
	}
	return nil
}

// Planned lists the directories a dry run would have created, in order.
func (e *DirEnsurer) Planned() []string {
	return append([]string(nil), e.planned...)
}

func (e *DirEnsurer) ensureOne(p string) error {
	info, err := e.remote.Stat(p)
	switch {
	case err == nil:
		if !info.IsDir() {
			return moverr.Wrap(moverr.ErrRemoteIO, "not a directory", p, nil)
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return moverr.Wrap(moverr.ErrRemoteIO, "stat", p, err)
	}

	e.logger.Debug("Creating target path", "path", p)
	if e.dryRun {
		e.planned = append(e.planned, p)
		return nil
	}
	if err := e.remote.Mkdir(p); err != nil {
		// Another run may have created it between stat and mkdir.
		if info, statErr := e.remote.Stat(p); statErr == nil && info.IsDir() {
			return nil
		}
		return moverr.Wrap(moverr.ErrRemoteIO, "mkdir", p, err)
	}
	return nil
}

// Ancestors lists dir and every directory above it, root first.
// "/a/b" yields ["/", "/a", "/a/b"]; "a/b" yields ["a", "a/b"].
func Ancestors(dir string) []string {
	dir = path.Clean(dir)
	if dir == "." {
		return nil
	}
	var out []string
	prefix := ""
	if strings.HasPrefix(dir, "/") {
		out = append(out, "/")
		prefix = "/"
		dir = strings.TrimPrefix(dir, "/")
		if dir == "" {
			return out
		}
	}
	current := prefix
	for i, part := range strings.Split(dir, "/") {
		if i == 0 {
			current += part
		} else {
			current = fmt.Sprintf("%s/%s", current, part)
		}
		out = append(out, current)
	}
	return out
}
