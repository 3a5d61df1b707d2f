package filemover_test

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"
)

// fakeRemote is an in-memory remote tree that records every call.
type fakeRemote struct {
	dirs  map[string]bool
	files map[string]int64
	calls []string

	putErr   map[string]error // keyed by local path
	statErr  map[string]error // keyed by remote path
	mkdirErr map[string]error
	// sizeSkew is added to the stored size of every upload.
	sizeSkew int64
	// orderViolations lists directories created before their parent existed.
	orderViolations []string
}

func newFakeRemote(existing ...string) *fakeRemote {
	r := &fakeRemote{
		dirs:     map[string]bool{"/": true},
		files:    map[string]int64{},
		putErr:   map[string]error{},
		statErr:  map[string]error{},
		mkdirErr: map[string]error{},
	}
	for _, d := range existing {
		r.dirs[d] = true
	}
	return r
}

func (r *fakeRemote) Stat(p string) (fs.FileInfo, error) {
	r.calls = append(r.calls, "stat "+p)
	if err := r.statErr[p]; err != nil {
		return nil, err
	}
	if r.dirs[p] {
		return fakeInfo{name: path.Base(p), dir: true}, nil
	}
	if size, ok := r.files[p]; ok {
		return fakeInfo{name: path.Base(p), size: size}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (r *fakeRemote) Mkdir(p string) error {
	r.calls = append(r.calls, "mkdir "+p)
	if err := r.mkdirErr[p]; err != nil {
		return err
	}
	if !r.dirs[path.Dir(p)] {
		r.orderViolations = append(r.orderViolations, p)
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrNotExist}
	}
	if r.dirs[p] {
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
	}
	r.dirs[p] = true
	return nil
}

func (r *fakeRemote) Put(ctx context.Context, localPath, remotePath string, progress func(int64, int64)) error {
	r.calls = append(r.calls, "put "+remotePath)
	if err := r.putErr[localPath]; err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.dirs[path.Dir(remotePath)] {
		return fmt.Errorf("put %s: parent missing", remotePath)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}
	progress(info.Size()/2, info.Size())
	progress(info.Size(), info.Size())
	r.files[remotePath] = info.Size() + r.sizeSkew
	return nil
}

func (r *fakeRemote) mkdirs() []string {
	var out []string
	for _, c := range r.calls {
		if len(c) > 6 && c[:6] == "mkdir " {
			out = append(out, c[6:])
		}
	}
	return out
}

func (r *fakeRemote) puts() []string {
	var out []string
	for _, c := range r.calls {
		if len(c) > 4 && c[:4] == "put " {
			out = append(out, c[4:])
		}
	}
	return out
}

type fakeInfo struct {
	name string
	size int64
	dir  bool
}

func (f fakeInfo) Name() string { return f.name }
func (f fakeInfo) Size() int64  { return f.size }
func (f fakeInfo) Mode() fs.FileMode {
	if f.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }
