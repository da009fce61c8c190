package shared

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"manifestboard/internal/fileutil"
)

const documentMode = 0o664

// Document is one JSON file on the share.
type Document[T any] struct {
	path     string
	fallback func() T

	mu            sync.Mutex
	corruptStamp  Stamp
	corruptBackup string
}

// NewDocument binds a document to path. fallback produces the value used for
// missing, empty and corrupt files.
func NewDocument[T any](path string, fallback func() T) *Document[T] {
	if fallback == nil {
		fallback = func() T {
			var zero T
			return zero
		}
	}
	return &Document[T]{path: path, fallback: fallback}
}

// Path returns the document location.
func (d *Document[T]) Path() string {
	return d.path
}

// Result describes what Read found on disk.
type Result struct {
	Stamp Stamp
	// Created is set when the file was absent and the default was written.
	Created bool
}

// Read loads the document. A missing file is created with the default value.
// An empty file yields the default without error. A file that fails to parse
// is copied to its backup path and the default is returned together with a
// *CorruptError; the corrupt file itself is left in place for the next writer
// to replace. The backup is taken once per revision: rereading the same
// corrupt revision returns a CorruptError with Repeated set.
func (d *Document[T]) Read() (T, Result, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			value := d.fallback()
			stamp, werr := d.Write(value)
			if werr != nil {
				return value, Result{}, fmt.Errorf("create default %s: %w", d.path, werr)
			}
			return value, Result{Stamp: stamp, Created: true}, nil
		}
		return d.fallback(), Result{}, fmt.Errorf("read %s: %w", d.path, err)
	}
	stamp, _ := d.Stat()

	if len(bytes.TrimSpace(data)) == 0 {
		return d.fallback(), Result{Stamp: stamp}, nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return d.fallback(), Result{Stamp: stamp}, d.corrupt(stamp, err)
	}
	return value, Result{Stamp: stamp}, nil
}

func (d *Document[T]) corrupt(stamp Stamp, err error) *CorruptError {
	d.mu.Lock()
	defer d.mu.Unlock()
	corrupt := &CorruptError{Path: d.path, Err: err}
	if stamp.Exists && stamp.Equal(d.corruptStamp) {
		corrupt.BackupPath = d.corruptBackup
		corrupt.Repeated = true
		return corrupt
	}
	backup, berr := fileutil.Backup(d.path)
	if berr != nil {
		corrupt.Err = errors.Join(err, berr)
		return corrupt
	}
	corrupt.BackupPath = backup
	d.corruptStamp = stamp
	d.corruptBackup = backup
	return corrupt
}

// Write replaces the document with value and returns the stamp of the new
// revision.
func (d *Document[T]) Write(value T) (Stamp, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return Stamp{}, fmt.Errorf("encode %s: %w", d.path, err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(d.path, data, documentMode); err != nil {
		return Stamp{}, fmt.Errorf("write %s: %w", d.path, err)
	}
	return d.Stat()
}

// Stat returns the current on-disk stamp. A missing file yields a zero stamp
// and no error.
func (d *Document[T]) Stat() (Stamp, error) {
	return StatPath(d.path)
}
