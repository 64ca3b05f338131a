// Package statistics collects counters for a compression run. All counters
// are safe for concurrent use by the workers draining the outcome channel.
package statistics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// maxRecordedErrors caps the retained error list so a pathological run does
// not grow it without bound.
const maxRecordedErrors = 100

// Statistics contains all counters of one compression run.
type Statistics struct {
	FilesFound      int64
	FilesCompressed int64
	FilesFailed     int64
	BytesIn         int64
	BytesOut        int64

	StartTime time.Time
	EndTime   time.Time

	mutex  sync.RWMutex
	errors []FileError
}

// FileError records a single per-file failure.
type FileError struct {
	FilePath  string    `json:"file_path"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is an immutable copy of the counters, shaped for JSON consumers.
type Snapshot struct {
	FilesFound      int64       `json:"files_found"`
	FilesCompressed int64       `json:"files_compressed"`
	FilesFailed     int64       `json:"files_failed"`
	BytesIn         int64       `json:"bytes_in"`
	BytesOut        int64       `json:"bytes_out"`
	SpaceSavedPct   float64     `json:"space_saved_pct"`
	DurationSeconds float64     `json:"duration_seconds"`
	FilesPerSecond  float64     `json:"files_per_second"`
	Errors          []FileError `json:"errors,omitempty"`
}

// New returns a Statistics instance with the clock started.
func New() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// AddFound adds n to the count of discovered files.
func (s *Statistics) AddFound(n int64) {
	atomic.AddInt64(&s.FilesFound, n)
}

// IncrementCompressed increases the count of successfully compressed files.
func (s *Statistics) IncrementCompressed() {
	atomic.AddInt64(&s.FilesCompressed, 1)
}

// IncrementFailed increases the count of failed files.
func (s *Statistics) IncrementFailed() {
	atomic.AddInt64(&s.FilesFailed, 1)
}

// AddBytes records the source and output byte sizes of one file.
func (s *Statistics) AddBytes(in, out int64) {
	atomic.AddInt64(&s.BytesIn, in)
	atomic.AddInt64(&s.BytesOut, out)
}

// RecordError appends a per-file failure to the retained error list.
func (s *Statistics) RecordError(filePath string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.errors) >= maxRecordedErrors {
		return
	}
	s.errors = append(s.errors, FileError{
		FilePath:  filePath,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

// Finish stops the clock.
func (s *Statistics) Finish() {
	s.mutex.Lock()
	s.EndTime = time.Now()
	s.mutex.Unlock()
}

// GetSnapshot returns a consistent copy of the counters.
func (s *Statistics) GetSnapshot() Snapshot {
	s.mutex.RLock()
	end := s.EndTime
	errs := make([]FileError, len(s.errors))
	copy(errs, s.errors)
	s.mutex.RUnlock()

	if end.IsZero() {
		end = time.Now()
	}
	duration := end.Sub(s.StartTime)

	snap := Snapshot{
		FilesFound:      atomic.LoadInt64(&s.FilesFound),
		FilesCompressed: atomic.LoadInt64(&s.FilesCompressed),
		FilesFailed:     atomic.LoadInt64(&s.FilesFailed),
		BytesIn:         atomic.LoadInt64(&s.BytesIn),
		BytesOut:        atomic.LoadInt64(&s.BytesOut),
		DurationSeconds: duration.Seconds(),
		Errors:          errs,
	}
	if snap.BytesIn > 0 {
		snap.SpaceSavedPct = float64(snap.BytesIn-snap.BytesOut) * 100 / float64(snap.BytesIn)
	}
	if duration > 0 {
		snap.FilesPerSecond = float64(snap.FilesCompressed+snap.FilesFailed) / duration.Seconds()
	}
	return snap
}

// GetSummary returns a one-line human-readable summary of the run.
func (s *Statistics) GetSummary() string {
	snap := s.GetSnapshot()
	return fmt.Sprintf("%d/%d files compressed (%d failed) in %.1fs, %.1f%% space saved",
		snap.FilesCompressed, snap.FilesFound, snap.FilesFailed,
		snap.DurationSeconds, snap.SpaceSavedPct)
}
