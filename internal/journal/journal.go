// Package journal records the outcome of every provisioning task of a run.
// It is diagnostic output only; the manifest remains the result consumed
// by benchmarks.
package journal

import (
	"time"
)

// TaskStatus represents the outcome of a provisioning task
type TaskStatus string

const (
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
)

// TaskRecord represents a task record in the journal
type TaskRecord struct {
	RunID     string        `json:"run_id"`
	Kind      string        `json:"kind"`
	Endpoint  string        `json:"endpoint"`
	Bucket    string        `json:"bucket,omitempty"`
	Object    string        `json:"object,omitempty"`
	Status    TaskStatus    `json:"status"`
	LastError string        `json:"last_error,omitempty"`
	Duration  time.Duration `json:"duration"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store defines the interface for journal persistence
type Store interface {
	RecordTask(record *TaskRecord) error
	ListTasks(runID string, status TaskStatus) ([]*TaskRecord, error)
	Close() error
}

// NopStore discards all records. It is used when no journal is configured.
type NopStore struct{}

func (NopStore) RecordTask(*TaskRecord) error { return nil }

func (NopStore) ListTasks(string, TaskStatus) ([]*TaskRecord, error) { return nil, nil }

func (NopStore) Close() error { return nil }
