// Package moverr classifies the failures a recording move can run into.
//
// Errors are tagged with one of the exported markers so callers can decide,
// with errors.Is, whether a failure ends the whole run or only one file.
package moverr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig         = errors.New("config error")
	ErrConnection     = errors.New("connection error")
	ErrDateParse      = errors.New("date parse error")
	ErrRemoteIO       = errors.New("remote i/o error")
	ErrLocalIO        = errors.New("local i/o error")
	ErrAlreadyRunning = errors.New("another instance is already running")
)

// Wrap tags err with marker and adds the operation and path as context.
// Both the marker and err stay reachable through errors.Is and errors.As.
func Wrap(marker error, op, path string, err error) error {
	detail := buildDetail(op, path)
	if marker == nil {
		marker = ErrRemoteIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification of err suitable for logs and reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrAlreadyRunning):
		return "already-running"
	case errors.Is(err, ErrDateParse):
		return "date-parse"
	case errors.Is(err, ErrLocalIO):
		return "local-io"
	case errors.Is(err, ErrRemoteIO):
		return "remote-io"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "interrupted"
	default:
		return "unknown"
	}
}

// Classified reports whether err already carries one of the markers.
func Classified(err error) bool {
	k := Kind(err)
	return k != "" && k != "unknown"
}

// IsFatal reports whether err must stop the run instead of failing a single file.
func IsFatal(err error) bool {
	switch Kind(err) {
	case "config", "connection", "already-running", "interrupted":
		return true
	}
	return false
}

func buildDetail(op, path string) string {
	parts := make([]string, 0, 2)
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	if path != "" {
		parts = append(parts, fmt.Sprintf("%q", path))
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, " ")
}
