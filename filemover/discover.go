package filemover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"recmover/moverr"
)

// Candidate is a local file found during discovery.
type Candidate struct {
	// Path is absolute with symlinks resolved.
	Path string
	Name string
	Size int64
}

// Discover walks sourceDir recursively and returns every regular file whose
// resolved name ends with one of extensions. Paths are canonical and each file appears once.
// The order is the lexical walk order of the resolved tree.
func Discover(sourceDir string, extensions []string) ([]Candidate, error) {
	root, err := CanonicalPath(sourceDir)
	if err != nil {
		return nil, moverr.Wrap(moverr.ErrLocalIO, "resolve source dir", sourceDir, err)
	}

	seen := make(map[string]struct{})
	var out []Candidate

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			// Unreadable subdirectories are left out rather than ending the run.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		resolved, err := filepath.EvalSymlinks(p)
		if err != nil {
			// Dangling symlink.
			return nil
		}
		// The target is what gets moved, so its name decides, not the link's.
		if !matchesExtension(filepath.Base(resolved), extensions) {
			return nil
		}
		info, err := os.Stat(resolved)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if _, dup := seen[resolved]; dup {
			return nil
		}
		seen[resolved] = struct{}{}

		out = append(out, Candidate{
			Path: resolved,
			Name: filepath.Base(resolved),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, moverr.Wrap(moverr.ErrLocalIO, "walk source dir", root, err)
	}
	return out, nil
}

// CanonicalPath returns p as an absolute path with symlinks resolved. When p no
// longer exists the cleaned absolute path is returned.
func CanonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

func matchesExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
