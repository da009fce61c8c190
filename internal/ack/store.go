package ack

import (
	"context"
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

// writeTrackingWindow bounds how long this instance keeps checking that its
// own writes survived.
const writeTrackingWindow = 24 * time.Hour

// ErrInvalid wraps every validation failure of an acknowledgment request.
var ErrInvalid = errors.New("invalid acknowledgment")

// Acknowledgment is a request to acknowledge one manifest/carrier.
type Acknowledgment struct {
	Date         string
	ManifestTime string
	Carrier      string
	User         string
	Status       status.Status
	Reason       string
}

// Options configures a Store.
type Options struct {
	// InstanceID tags collision reports.
	InstanceID string
	// Collisions receives detected lost-update collisions. Optional.
	Collisions shared.CollisionSink
	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// Store reads and writes the acknowledgment document.
type Store struct {
	doc        *shared.Document[collection]
	detector   *shared.ChangeDetector
	logger     *slog.Logger
	collisions shared.CollisionSink
	instanceID string
	now        func() time.Time

	mu      sync.Mutex
	written map[Key]time.Time
}

// NewStore binds a store to the acknowledgment document at path.
func NewStore(path string, logger *slog.Logger, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		doc:        shared.NewDocument(path, emptyCollection),
		detector:   shared.NewChangeDetector(path),
		logger:     logging.NewComponentLogger(logger, "ack"),
		collisions: opts.Collisions,
		instanceID: opts.InstanceID,
		now:        now,
		written:    make(map[Key]time.Time),
	}
}

// Path returns the acknowledgment document location.
func (s *Store) Path() string {
	return s.doc.Path()
}

// Changed reports whether the document changed since the last poll or the
// last write made through this store. The first call only primes the
// baseline.
func (s *Store) Changed() (bool, error) {
	return s.detector.Poll()
}

// Validate normalizes a request and checks it. Errors wrap ErrInvalid.
func Validate(req Acknowledgment) (Acknowledgment, error) {
	req.Date = normalizeText(req.Date)
	req.Carrier = normalizeText(req.Carrier)
	req.User = normalizeText(req.User)
	req.Reason = strings.TrimSpace(req.Reason)

	if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
		return req, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalid, req.Date)
	}
	clock, err := status.ParseClock(req.ManifestTime)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	req.ManifestTime = clock.String()
	if req.Carrier == "" {
		return req, fmt.Errorf("%w: carrier is required", ErrInvalid)
	}
	if req.User == "" {
		return req, fmt.Errorf("%w: user is required", ErrInvalid)
	}
	switch req.Status {
	case status.Missed:
		if req.Reason == "" {
			return req, fmt.Errorf("%w: a reason is required for a missed manifest", ErrInvalid)
		}
	case status.Active:
		if req.Reason != "" {
			return req, fmt.Errorf("%w: a reason is only recorded for missed manifests", ErrInvalid)
		}
	default:
		return req, fmt.Errorf("%w: status must be Active or Missed, got %q", ErrInvalid, req.Status)
	}
	return req, nil
}

// Record merges an acknowledgment into the shared document and returns the
// resulting record. I/O failures are returned to the caller and never
// retried. A corrupt document is backed up and replaced by a fresh
// collection holding this acknowledgment.
func (s *Store) Record(ctx context.Context, req Acknowledgment) (Record, error) {
	req, err := Validate(req)
	if err != nil {
		return Record{}, err
	}
	key := NewKey(req.Date, req.ManifestTime, req.Carrier)
	at := shared.At(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, result, err := s.read(ctx)
	if err != nil && !errors.Is(err, shared.ErrCorrupt) {
		return Record{}, err
	}

	rec := merge(&coll, key, req, at)

	current, statErr := s.doc.Stat()
	if statErr == nil && !current.Equal(result.Stamp) {
		s.reportCollision(ctx, shared.CollisionConcurrentWrite, key,
			"acknowledgment document changed between read and write; merging again")
		fresh, _, rerr := s.read(ctx)
		if rerr == nil || errors.Is(rerr, shared.ErrCorrupt) {
			coll = fresh
			rec = merge(&coll, key, req, at)
		}
	}

	stamp, err := s.doc.Write(coll)
	if err != nil {
		logging.ErrorWithContext(s.logger, "acknowledgment write failed", "ack_write_failed",
			append(logging.ManifestAttrs(key.Carrier, key.ManifestTime, key.Date),
				logging.String(logging.FieldDocument, s.doc.Path()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the shared directory is mounted and writable, then retry"),
			)...,
		)
		return Record{}, err
	}
	s.detector.Observe(stamp)
	s.written[key] = at.Time

	s.logger.LogAttrs(ctx, slog.LevelInfo, "acknowledgment recorded",
		append(logging.ManifestAttrs(key.Carrier, key.ManifestTime, key.Date),
			logging.String("user", rec.User),
			logging.String("status", string(rec.Status)),
			logging.Int("history_len", len(rec.ReasonHistory)),
			logging.String(logging.FieldEventType, "ack_recorded"),
		)...,
	)
	return rec, nil
}

func merge(coll *collection, key Key, req Acknowledgment, at shared.Time) Record {
	entry := HistoryEntry{Reason: req.Reason, User: req.User, Timestamp: at, Status: req.Status}
	if idx := coll.find(key); idx >= 0 {
		rec := coll.records[idx]
		rec.User = req.User
		rec.Status = req.Status
		rec.Reason = req.Reason
		rec.Timestamp = at
		rec.ReasonHistory = append(slices.Clone(rec.ReasonHistory), entry)
		coll.records[idx] = rec
		return rec
	}
	rec := Record{
		Date:          key.Date,
		ManifestTime:  key.ManifestTime,
		Carrier:       key.Carrier,
		User:          req.User,
		Status:        req.Status,
		Reason:        req.Reason,
		Timestamp:     at,
		ReasonHistory: []HistoryEntry{entry},
	}
	coll.records = append(coll.records, rec)
	return rec
}

// Load returns every record in the document. On corruption the records are
// empty and the error is a *shared.CorruptError.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, _, err := s.read(ctx)
	return coll.records, err
}

// QueryDate returns the records whose date equals date exactly.
func (s *Store) QueryDate(ctx context.Context, date string) ([]Record, error) {
	records, err := s.Load(ctx)
	date = normalizeText(date)
	filtered := make([]Record, 0, len(records))
	for _, rec := range records {
		if normalizeText(rec.Date) == date {
			filtered = append(filtered, rec)
		}
	}
	return filtered, err
}

// Lookup returns the record for a key.
func (s *Store) Lookup(ctx context.Context, date, manifestTime, carrier string) (Record, bool, error) {
	records, err := s.Load(ctx)
	key := NewKey(date, manifestTime, carrier)
	for _, rec := range records {
		if rec.Key() == key {
			return rec, true, err
		}
	}
	return Record{}, false, err
}

// History returns the reason history for a key, oldest first.
func (s *Store) History(ctx context.Context, date, manifestTime, carrier string) ([]HistoryEntry, error) {
	rec, ok, err := s.Lookup(ctx, date, manifestTime, carrier)
	if !ok {
		return nil, err
	}
	return rec.ReasonHistory, err
}

// read loads the document, logs corruption, refreshes the change baseline
// and verifies this instance's earlier writes. Callers hold s.mu.
func (s *Store) read(ctx context.Context) (collection, shared.Result, error) {
	coll, result, err := s.doc.Read()
	var corrupt *shared.CorruptError
	switch {
	case errors.As(err, &corrupt):
		if corrupt.Repeated {
			break
		}
		logging.WarnWithContext(s.logger, "acknowledgment document corrupt; treating as empty", "ack_document_corrupt",
			logging.String(logging.FieldDocument, corrupt.Path),
			logging.String("backup_path", corrupt.BackupPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the .bak copy and merge any records worth keeping"),
			logging.String(logging.FieldImpact, "acknowledgments made before the corruption are not shown"),
		)
	case err != nil:
		return emptyCollection(), result, err
	}
	if len(coll.invalid) > 0 {
		logging.WarnWithContext(s.logger, "skipping malformed acknowledgment records", "ack_records_malformed",
			logging.String(logging.FieldDocument, s.doc.Path()),
			logging.Int("malformed_count", len(coll.invalid)),
			logging.String(logging.FieldErrorHint, "malformed entries are preserved in the file; correct them by hand"),
			logging.String(logging.FieldImpact, "those acknowledgments are not shown on the board"),
		)
	}
	if result.Stamp.Exists {
		s.detector.Observe(result.Stamp)
	}
	s.verifyWrites(ctx, coll)
	return coll, result, err
}

// verifyWrites reports keys this instance wrote that another full-document
// write has since dropped or rolled back. Each loss is reported once.
func (s *Store) verifyWrites(ctx context.Context, coll collection) {
	for key, at := range s.written {
		idx := coll.find(key)
		switch {
		case s.now().Sub(at) > writeTrackingWindow:
		case idx < 0:
			s.reportCollision(ctx, shared.CollisionLostUpdate, key, "acknowledgment written by this instance is missing")
		case coll.records[idx].Timestamp.Before(at):
			s.reportCollision(ctx, shared.CollisionLostUpdate, key, "acknowledgment written by this instance was replaced by an older version")
		default:
			continue
		}
		delete(s.written, key)
	}
}

func (s *Store) reportCollision(ctx context.Context, kind string, key Key, detail string) {
	logging.WarnWithContext(s.logger, "acknowledgment collision detected", "ack_collision",
		append(logging.ManifestAttrs(key.Carrier, key.ManifestTime, key.Date),
			logging.String("collision_kind", kind),
			logging.String(logging.FieldDocument, s.doc.Path()),
			logging.String("detail", detail),
			logging.String(logging.FieldInstanceID, s.instanceID),
			logging.String(logging.FieldErrorHint, "re-acknowledge the carrier if it no longer shows as acknowledged"),
			logging.String(logging.FieldImpact, "another station's write may have overwritten this change"),
		)...,
	)
	if s.collisions == nil {
		return
	}
	err := s.collisions.RecordCollision(ctx, shared.Collision{
		Document: s.doc.Path(),
		Kind:     kind,
		Key:      key.String(),
		Detail:   detail,
	})
	if err != nil {
		s.logger.Debug("collision journal write failed", logging.Error(err))
	}
}
