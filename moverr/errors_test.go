package moverr_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"recmover/moverr"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	err := moverr.Wrap(moverr.ErrLocalIO, "remove", "/tmp/a.mkv", fs.ErrPermission)
	if !errors.Is(err, moverr.ErrLocalIO) {
		t.Fatalf("expected local i/o marker, got %v", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), `remove "/tmp/a.mkv"`) {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := moverr.Wrap(moverr.ErrDateParse, "", "x", nil)
	if err.Error() != `date parse error: "x"` {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestKindAndFatal(t *testing.T) {
	tests := []struct {
		err   error
		kind  string
		fatal bool
	}{
		{moverr.Wrap(moverr.ErrConfig, "load", "", nil), "config", true},
		{moverr.Wrap(moverr.ErrConnection, "dial", "host:22", errors.New("refused")), "connection", true},
		{moverr.ErrAlreadyRunning, "already-running", true},
		{moverr.Wrap(moverr.ErrDateParse, "plan", "a.mkv", nil), "date-parse", false},
		{moverr.Wrap(moverr.ErrRemoteIO, "mkdir", "/v", nil), "remote-io", false},
		{moverr.Wrap(moverr.ErrLocalIO, "open", "/a", nil), "local-io", false},
		{fmt.Errorf("upload: %w", context.Canceled), "interrupted", true},
		{errors.New("boom"), "unknown", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		if got := moverr.Kind(tt.err); got != tt.kind {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.kind)
		}
		if got := moverr.IsFatal(tt.err); got != tt.fatal {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.fatal)
		}
	}
}

func TestClassified(t *testing.T) {
	if moverr.Classified(errors.New("plain")) {
		t.Fatal("plain error should not be classified")
	}
	if !moverr.Classified(moverr.Wrap(moverr.ErrRemoteIO, "put", "/x", nil)) {
		t.Fatal("wrapped error should be classified")
	}
}
