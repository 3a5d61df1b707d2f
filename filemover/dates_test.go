package filemover_test

import (
	"errors"
	"testing"
	"time"

	"recmover/filemover"
	"recmover/moverr"
)

func TestParseDateAcceptedFormats(t *testing.T) {
	tests := []struct {
		stem string
		want string
	}{
		{"2025-06-30 15-32-04", "2025-06-30"},
		{"2025-06-30", "2025-06-30"},
		{"2025_06_30_15_32_04", "2025-06-30"},
		{"2025.6.3", "2025-06-03"},
		{"Replay 2025-07-01 09-00-00", "2025-07-01"},
		{"20250630", "2025-06-30"},
		{"20250630153204", "2025-06-30"},
		{"20250630T1532", "2025-06-30"},
		{"VID_20250630_153204", "2025-06-30"},
		{"06-30-2025", "2025-06-30"},
		{"30.06.2025", "2025-06-30"},
		{"June 30, 2025", "2025-06-30"},
		{"Jun 30 2025 10-15", "2025-06-30"},
		{"Sept-30-2025", "2025-09-30"},
		{"30 June 2025", "2025-06-30"},
		{"1st Mar 2024", "2024-03-01"},
		{"stream 30-jun-2025 final", "2025-06-30"},
		{"2024-02-29", "2024-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			got, err := filemover.ParseDate(tt.stem)
			if err != nil {
				t.Fatalf("ParseDate(%q) returned error: %v", tt.stem, err)
			}
			if got.Format(time.DateOnly) != tt.want {
				t.Fatalf("ParseDate(%q) = %s, want %s", tt.stem, got.Format(time.DateOnly), tt.want)
			}
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, stem := range []string{
		"not-a-date",
		"",
		"recording",
		"2025-13-01",
		"2023-02-29",
		"12345",
		"Marathon 30 2025",
	} {
		if got, err := filemover.ParseDate(stem); err == nil {
			t.Errorf("ParseDate(%q) = %s, want error", stem, got)
		}
	}
}

func TestDestinationShape(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"2025-07-01 09-00-00.mp4", "/videos", "/videos/2025/07/01/2025-07-01 09-00-00.mp4"},
		{"2025-07-01 09-00-00.mp4", "/", "/2025/07/01/2025-07-01 09-00-00.mp4"},
		{"2025-07-01 09-00-00.mp4", "/mnt/media/obs/", "/mnt/media/obs/2025/07/01/2025-07-01 09-00-00.mp4"},
		{"March 5 2024.mkv", "/v", "/v/2024/03/05/March 5 2024.mkv"},
		{"2025-01-09.part.mkv", "/v", "/v/2025/01/09/2025-01-09.part.mkv"},
	}
	for _, tt := range tests {
		got, err := filemover.Destination(tt.name, tt.base)
		if err != nil {
			t.Fatalf("Destination(%q, %q) returned error: %v", tt.name, tt.base, err)
		}
		if got != tt.want {
			t.Errorf("Destination(%q, %q) = %q, want %q", tt.name, tt.base, got, tt.want)
		}
		again, _ := filemover.Destination(tt.name, tt.base)
		if again != got {
			t.Errorf("Destination not deterministic: %q vs %q", got, again)
		}
	}
}

func TestDestinationWithoutDate(t *testing.T) {
	_, err := filemover.Destination("not-a-date.mkv", "/videos")
	if !errors.Is(err, moverr.ErrDateParse) {
		t.Fatalf("expected date parse error, got %v", err)
	}
}

func TestStem(t *testing.T) {
	if got := filemover.Stem("a.b.mkv"); got != "a.b" {
		t.Fatalf("Stem = %q", got)
	}
	if got := filemover.Stem("noext"); got != "noext" {
		t.Fatalf("Stem = %q", got)
	}
}
