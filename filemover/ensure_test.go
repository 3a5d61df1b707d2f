package filemover_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"

	"recmover/filemover"
	"recmover/moverr"
)

func TestAncestors(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/videos/2025/07/01", []string{"/", "/videos", "/videos/2025", "/videos/2025/07", "/videos/2025/07/01"}},
		{"/videos/", []string{"/", "/videos"}},
		{"/", []string{"/"}},
		{"a/b", []string{"a", "a/b"}},
		{".", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, filemover.Ancestors(tt.in)); diff != "" {
			t.Errorf("Ancestors(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestEnsureCreatesParentsFirst(t *testing.T) {
	remote := newFakeRemote()
	e := filemover.NewDirEnsurer(remote, false, nil)

	if err := e.EnsureParent("/videos/2025/07/01/clip.mp4"); err != nil {
		t.Fatalf("EnsureParent: %v", err)
	}

	want := []string{"/videos", "/videos/2025", "/videos/2025/07", "/videos/2025/07/01"}
	if diff := cmp.Diff(want, remote.mkdirs()); diff != "" {
		t.Fatalf("mkdir order mismatch (-want +got):\n%s", diff)
	}
	if len(remote.orderViolations) != 0 {
		t.Fatalf("children created before parents: %v", remote.orderViolations)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	remote := newFakeRemote()
	if err := filemover.NewDirEnsurer(remote, false, nil).Ensure("/videos/2025"); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	// A fresh ensurer has no memory of the first call and must rely on stat.
	if err := filemover.NewDirEnsurer(remote, false, nil).Ensure("/videos/2025"); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if diff := cmp.Diff([]string{"/videos", "/videos/2025"}, remote.mkdirs()); diff != "" {
		t.Fatalf("expected one mkdir per segment (-want +got):\n%s", diff)
	}
}

func TestEnsureRemembersKnownDirectories(t *testing.T) {
	remote := newFakeRemote()
	e := filemover.NewDirEnsurer(remote, false, nil)
	if err := e.Ensure("/videos/2025/07/01"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	before := len(remote.calls)
	if err := e.Ensure("/videos/2025/07/02"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	want := []string{"stat /videos/2025/07/02", "mkdir /videos/2025/07/02"}
	if diff := cmp.Diff(want, remote.calls[before:]); diff != "" {
		t.Fatalf("unexpected calls (-want +got):\n%s", diff)
	}
}

func TestEnsureSkipsExistingDirectories(t *testing.T) {
	remote := newFakeRemote("/videos", "/videos/2025")
	if err := filemover.NewDirEnsurer(remote, false, nil).Ensure("/videos/2025/07"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if diff := cmp.Diff([]string{"/videos/2025/07"}, remote.mkdirs()); diff != "" {
		t.Fatalf("mkdir mismatch (-want +got):\n%s", diff)
	}
}

func TestEnsureDryRunNeverCreates(t *testing.T) {
	remote := newFakeRemote("/videos")
	e := filemover.NewDirEnsurer(remote, true, nil)
	if err := e.EnsureParent("/videos/2025/07/01/clip.mp4"); err != nil {
		t.Fatalf("EnsureParent: %v", err)
	}
	if got := remote.mkdirs(); len(got) != 0 {
		t.Fatalf("dry run created directories: %v", got)
	}
	want := []string{"/videos/2025", "/videos/2025/07", "/videos/2025/07/01"}
	if diff := cmp.Diff(want, e.Planned()); diff != "" {
		t.Fatalf("planned mismatch (-want +got):\n%s", diff)
	}
}

// racingRemote creates the directory behind the ensurer's back, as a
// concurrent run would, and then reports the mkdir as failed.
type racingRemote struct {
	*fakeRemote
}

func (r racingRemote) Mkdir(p string) error {
	r.calls = append(r.calls, "mkdir "+p)
	r.dirs[p] = true
	return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
}

func TestEnsureToleratesConcurrentCreation(t *testing.T) {
	remote := racingRemote{newFakeRemote()}
	if err := filemover.NewDirEnsurer(remote, false, nil).Ensure("/videos/2025"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
}

func TestEnsureErrors(t *testing.T) {
	t.Run("stat failure", func(t *testing.T) {
		remote := newFakeRemote()
		remote.statErr["/videos"] = errors.New("permission denied")
		err := filemover.NewDirEnsurer(remote, false, nil).Ensure("/videos/2025")
		if !errors.Is(err, moverr.ErrRemoteIO) {
			t.Fatalf("expected remote i/o error, got %v", err)
		}
		if len(remote.mkdirs()) != 0 {
			t.Fatalf("mkdir attempted after stat failure: %v", remote.mkdirs())
		}
	})

	t.Run("mkdir failure", func(t *testing.T) {
		remote := newFakeRemote()
		remote.mkdirErr["/videos"] = errors.New("disk full")
		err := filemover.NewDirEnsurer(remote, false, nil).Ensure("/videos/2025")
		if !errors.Is(err, moverr.ErrRemoteIO) {
			t.Fatalf("expected remote i/o error, got %v", err)
		}
		if diff := cmp.Diff([]string{"/videos"}, remote.mkdirs()); diff != "" {
			t.Fatalf("child attempted after parent failed (-want +got):\n%s", diff)
		}
	})

	t.Run("file in the way", func(t *testing.T) {
		remote := newFakeRemote()
		remote.files["/videos"] = 10
		err := filemover.NewDirEnsurer(remote, false, nil).Ensure("/videos/2025")
		if !errors.Is(err, moverr.ErrRemoteIO) {
			t.Fatalf("expected remote i/o error, got %v", err)
		}
	})
}
