// Package schedule loads the day's manifest definitions from the shared
// schedule document and offers the small editing helpers the CLI uses.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"manifestboard/internal/logging"
	"manifestboard/internal/shared"
	"manifestboard/internal/status"
)

// ErrNotFound is returned when removing a manifest or carrier that is not
// scheduled.
var ErrNotFound = errors.New("not in schedule")

// Manifest is one scheduled time and the carriers expected at it.
type Manifest struct {
	Time     string   `json:"time"`
	Carriers []string `json:"carriers"`
}

// Document is the on-disk schedule.
type Document struct {
	Manifests []Manifest `json:"manifests"`
}

func emptyDocument() Document {
	return Document{Manifests: []Manifest{}}
}

// Normalized trims names, drops blank and duplicate carriers (first occurrence
// wins), merges manifests that share a time, and orders them by time.
// Unparsable times are kept verbatim so the board can flag them.
func (d Document) Normalized() Document {
	out := emptyDocument()
	index := make(map[string]int, len(d.Manifests))
	for _, m := range d.Manifests {
		key := strings.TrimSpace(m.Time)
		if clock, err := status.ParseClock(key); err == nil {
			key = clock.String()
		}
		if key == "" {
			continue
		}
		pos, ok := index[key]
		if !ok {
			pos = len(out.Manifests)
			index[key] = pos
			out.Manifests = append(out.Manifests, Manifest{Time: key, Carriers: []string{}})
		}
		for _, carrier := range m.Carriers {
			carrier = strings.TrimSpace(carrier)
			if carrier == "" || slices.Contains(out.Manifests[pos].Carriers, carrier) {
				continue
			}
			out.Manifests[pos].Carriers = append(out.Manifests[pos].Carriers, carrier)
		}
	}
	slices.SortStableFunc(out.Manifests, func(a, b Manifest) int {
		return strings.Compare(a.Time, b.Time)
	})
	return out
}

// Store reads the schedule document, caching it for the current day until
// the file changes or a reload is requested.
type Store struct {
	doc    *shared.Document[Document]
	logger *slog.Logger

	mu        sync.Mutex
	cached    Document
	loadedDay string
	stamp     shared.Stamp
	loaded    bool
}

// NewStore binds a store to the schedule document at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		doc:    shared.NewDocument(path, emptyDocument),
		logger: logging.NewComponentLogger(logger, "schedule"),
		cached: emptyDocument(),
	}
}

// Path returns the schedule document location.
func (s *Store) Path() string {
	return s.doc.Path()
}

// Load reads the schedule from disk. A missing file is created empty. A
// corrupt file is backed up and an empty schedule is returned together with
// the *shared.CorruptError.
func (s *Store) Load() (Document, error) {
	doc, result, err := s.doc.Read()
	var corrupt *shared.CorruptError
	switch {
	case errors.As(err, &corrupt) && corrupt.Repeated:
	case errors.As(err, &corrupt):
		logging.WarnWithContext(s.logger, "schedule document corrupt; using empty schedule", "schedule_corrupt",
			logging.String(logging.FieldDocument, corrupt.Path),
			logging.String("backup_path", corrupt.BackupPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or restore the schedule file; the original was preserved as .bak"),
			logging.String(logging.FieldImpact, "no manifests are shown until the schedule is repaired"),
		)
	case err != nil:
		return Document{}, err
	case result.Created:
		s.logger.Info("created empty schedule document",
			logging.String(logging.FieldDocument, s.doc.Path()),
			logging.String(logging.FieldEventType, "schedule_created"),
		)
	}
	return doc.Normalized(), err
}

// Manifests returns the schedule for now's date, re-reading the document on
// date rollover, when its stamp changed, or after Reload. On a read failure
// the previously loaded schedule is returned along with the error.
func (s *Store) Manifests(now time.Time) ([]Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := now.Format(time.DateOnly)
	stamp, statErr := s.doc.Stat()
	if s.loaded && day == s.loadedDay && statErr == nil && stamp.Equal(s.stamp) {
		return slices.Clone(s.cached.Manifests), nil
	}

	doc, err := s.Load()
	if err != nil && !errors.Is(err, shared.ErrCorrupt) {
		return slices.Clone(s.cached.Manifests), err
	}
	if s.loaded && day != s.loadedDay {
		s.logger.Info("schedule reloaded for new day",
			logging.String(logging.FieldManifestDate, day),
			logging.Int("manifest_count", len(doc.Manifests)),
			logging.String(logging.FieldEventType, "schedule_rollover"),
		)
	}
	s.cached = doc
	s.loadedDay = day
	s.stamp, _ = s.doc.Stat()
	s.loaded = true
	return slices.Clone(doc.Manifests), err
}

// Reload forces the next Manifests call to re-read the document.
func (s *Store) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

// Save normalizes and writes the whole document. Last writer wins.
func (s *Store) Save(doc Document) error {
	if _, err := s.doc.Write(doc.Normalized()); err != nil {
		return err
	}
	s.Reload()
	return nil
}

// Add schedules carriers at manifestTime, creating the manifest if needed.
func (s *Store) Add(manifestTime string, carriers ...string) (Document, error) {
	clock, err := status.ParseClock(manifestTime)
	if err != nil {
		return Document{}, err
	}
	if len(carriers) == 0 {
		return Document{}, errors.New("at least one carrier is required")
	}
	doc, err := s.Load()
	if err != nil && !errors.Is(err, shared.ErrCorrupt) {
		return Document{}, err
	}
	doc.Manifests = append(doc.Manifests, Manifest{Time: clock.String(), Carriers: carriers})
	doc = doc.Normalized()
	if err := s.Save(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Remove drops carrier from the manifest at manifestTime, or the whole
// manifest when carrier is empty. A manifest left without carriers is
// removed.
func (s *Store) Remove(manifestTime, carrier string) (Document, error) {
	key := strings.TrimSpace(manifestTime)
	if clock, err := status.ParseClock(key); err == nil {
		key = clock.String()
	}
	carrier = strings.TrimSpace(carrier)

	doc, err := s.Load()
	if err != nil {
		return Document{}, err
	}
	pos := slices.IndexFunc(doc.Manifests, func(m Manifest) bool { return m.Time == key })
	if pos < 0 {
		return Document{}, fmt.Errorf("manifest %s: %w", key, ErrNotFound)
	}
	if carrier == "" {
		doc.Manifests = slices.Delete(doc.Manifests, pos, pos+1)
	} else {
		carriers := doc.Manifests[pos].Carriers
		idx := slices.Index(carriers, carrier)
		if idx < 0 {
			return Document{}, fmt.Errorf("carrier %q at %s: %w", carrier, key, ErrNotFound)
		}
		doc.Manifests[pos].Carriers = slices.Delete(carriers, idx, idx+1)
		if len(doc.Manifests[pos].Carriers) == 0 {
			doc.Manifests = slices.Delete(doc.Manifests, pos, pos+1)
		}
	}
	if err := s.Save(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
