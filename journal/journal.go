// Package journal keeps a history of runs in a bbolt file.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"recmover/filemover"
)

var ErrRunNotFound = errors.New("run not found")

var runsBucket = []byte("runs")

// FileRecord is the outcome of one file within a run.
type FileRecord struct {
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`
	Size        int64  `json:"size"`
	Status      string `json:"status"`
	Kind        string `json:"kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RunRecord is one stored run. IDs are UUIDv7 so keys sort by start time.
type RunRecord struct {
	ID       string       `json:"id"`
	Trigger  string       `json:"trigger"`
	DryRun   bool         `json:"dry_run"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Moved    int          `json:"moved"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Bytes    int64        `json:"bytes"`
	Files    []FileRecord `json:"files,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// FromReport converts a finished run. runErr is the run-level error, if any.
func FromReport(report *filemover.Report, runErr error) *RunRecord {
	rec := &RunRecord{}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if report == nil {
		rec.Started = time.Now()
		rec.Finished = rec.Started
		return rec
	}
	rec.Trigger = report.Trigger
	rec.DryRun = report.DryRun
	rec.Started = report.Started
	rec.Finished = report.Finished
	rec.Moved = report.Count(filemover.StatusMoved) + report.Count(filemover.StatusWouldMove)
	rec.Skipped = report.Count(filemover.StatusSkippedTrigger)
	rec.Failed = report.Count(filemover.StatusFailed)
	rec.Bytes = report.BytesMoved()
	for _, o := range report.Outcomes {
		f := FileRecord{
			Path:        o.Path,
			Destination: o.Destination,
			Size:        o.Size,
			Status:      string(o.Status),
			Kind:        o.Kind(),
		}
		if o.Err != nil {
			f.Error = o.Err.Error()
		}
		rec.Files = append(rec.Files, f)
	}
	return rec
}

// Journal is a bbolt-backed run history.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal at path. It waits briefly for the file
// lock rather than blocking forever behind another process.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &Journal{db: db}, nil
}

// Save stores rec, assigning an ID when it has none.
func (j *Journal) Save(rec *RunRecord) error {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}
		rec.ID = id.String()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(runsBucket).Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("put run: %w", err)
		}
		return nil
	})
}

// Get returns the run with id.
func (j *Journal) Get(id string) (*RunRecord, error) {
	var rec RunRecord
	err := j.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(id))
		if data == nil {
			return ErrRunNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns up to n runs, newest first. n <= 0 returns every run.
func (j *Journal) Recent(n int) ([]RunRecord, error) {
	var out []RunRecord
	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(out) >= n {
				break
			}
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
