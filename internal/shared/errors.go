package shared

import (
	"errors"
	"fmt"
)

// ErrCorrupt marks a shared document that exists but could not be parsed.
var ErrCorrupt = errors.New("shared document corrupt")

// CorruptError describes a corrupt document and where its contents were
// preserved before the default was substituted.
type CorruptError struct {
	Path       string
	BackupPath string
	Err        error
	// Repeated is set when this revision was already reported and backed up.
	Repeated bool
}

func (e *CorruptError) Error() string {
	if e.BackupPath == "" {
		return fmt.Sprintf("%s is corrupt (backup failed): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s is corrupt, backed up to %s: %v", e.Path, e.BackupPath, e.Err)
}

func (e *CorruptError) Unwrap() []error {
	return []error{ErrCorrupt, e.Err}
}
