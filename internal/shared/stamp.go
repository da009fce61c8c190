package shared

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"
)

// Stamp identifies a revision of a file as observed through stat.
type Stamp struct {
	ModTime time.Time
	Size    int64
	Exists  bool
}

// Equal reports whether two stamps describe the same revision.
func (s Stamp) Equal(other Stamp) bool {
	return s.Exists == other.Exists && s.Size == other.Size && s.ModTime.Equal(other.ModTime)
}

// StatPath stamps path. Missing files produce a zero stamp.
func StatPath(path string) (Stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stamp{}, nil
		}
		return Stamp{}, err
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size(), Exists: true}, nil
}

// ChangeDetector tells a poller whether a document changed since it was last
// observed. The first Poll only establishes the baseline so a poller never
// mistakes its own initial read for an external write. Safe for concurrent
// use.
type ChangeDetector struct {
	path string

	mu     sync.Mutex
	last   Stamp
	primed bool
}

func NewChangeDetector(path string) *ChangeDetector {
	return &ChangeDetector{path: path}
}

// Poll stats the document and reports whether its stamp differs from the last
// observed one.
func (c *ChangeDetector) Poll() (bool, error) {
	stamp, err := StatPath(c.path)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.primed {
		c.primed = true
		c.last = stamp
		return false, nil
	}
	if stamp.Equal(c.last) {
		return false, nil
	}
	c.last = stamp
	return true, nil
}

// Observe records a stamp this instance produced itself (or already
// reconciled) so the next Poll does not report it as a change.
func (c *ChangeDetector) Observe(stamp Stamp) {
	c.mu.Lock()
	c.last = stamp
	c.primed = true
	c.mu.Unlock()
}

// Last returns the most recently observed stamp.
func (c *ChangeDetector) Last() Stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
