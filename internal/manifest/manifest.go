// Package manifest reads and writes the preset result file consumed by
// benchmark scenarios and by later runs in update mode.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFoundOrMalformed is returned by Load when the manifest cannot be used
var ErrNotFoundOrMalformed = errors.New("manifest not found or malformed")

// Manifest is the persisted result of a preset run
type Manifest struct {
	Buckets []string       `json:"buckets"`
	Objects []ObjectRecord `json:"objects"`
	ObjSize string         `json:"obj_size"`
}

// ObjectRecord identifies one uploaded object
type ObjectRecord struct {
	Bucket string `json:"bucket"`
	Object string `json:"object"`
}

// ObjSize formats the object size annotation stored in the manifest
func ObjSize(sizeKB int) string {
	return fmt.Sprintf("%d Kb", sizeKB)
}

// Load reads a manifest written by a previous run
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFoundOrMalformed, err)
	}

	var raw struct {
		Buckets *[]string      `json:"buckets"`
		Objects []ObjectRecord `json:"objects"`
		ObjSize string         `json:"obj_size"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFoundOrMalformed, path, err)
	}
	if raw.Buckets == nil {
		return nil, fmt.Errorf("%w: %s: missing buckets list", ErrNotFoundOrMalformed, path)
	}

	return &Manifest{
		Buckets: *raw.Buckets,
		Objects: raw.Objects,
		ObjSize: raw.ObjSize,
	}, nil
}

// rename is replaced in tests to simulate a failed replace
var rename = os.Rename

// Save writes the manifest to path, replacing any existing file.
// The content goes to a temporary file in the same directory first and is
// renamed into place, so readers see either the old or the new manifest.
func Save(path string, m *Manifest) error {
	data, err := encode(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}

	if err := rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace manifest %s: %w", path, err)
	}
	return nil
}

func encode(m *Manifest) ([]byte, error) {
	out := *m
	// Empty lists are written as [] rather than null.
	if out.Buckets == nil {
		out.Buckets = []string{}
	}
	if out.Objects == nil {
		out.Objects = []ObjectRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
