// Package localstore keeps child health records on the device until they are
// confirmed by the server.
//
// The store is the only writer of the backend. It enforces one record per
// health id on write and on confirmed sync, and Cleanup restores that rule for
// data written by older versions or interrupted runs.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"childhealth/internal/model"
)

const DefaultCacheTTL = 5 * time.Second

// Codec encrypts single sensitive fields before they reach the backend.
type Codec interface {
	Encode(plain string) (string, error)
	Decode(blob string) (string, error)
}

type Store struct {
	mu      sync.Mutex
	backend Backend
	codec   Codec
	cache   *snapshot
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Store)

// WithCacheTTL bounds the age of the unsynced snapshot. Zero disables it.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) { s.cache.maxAge = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
		s.cache.now = now
	}
}

func New(backend Backend, codec Codec, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		codec:   codec,
		now:     time.Now,
		log:     log.With("component", "localstore"),
	}
	s.cache = newSnapshot(DefaultCacheTTL, s.now)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Put inserts rec or merges it onto the record already holding its health id.
// Missing local and health ids are assigned. The result is never synced.
func (s *Store) Put(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if rec.LocalID == "" {
		rec.LocalID = uuid.NewString()
	}
	if rec.HealthID == "" {
		rec.HealthID = model.NewHealthID(rec.ChildName, collectedAt(rec, now))
	}

	base, err := s.mergeBase(ctx, rec)
	if err != nil {
		return Record{}, err
	}

	var superseded string
	if base != nil {
		if base.Synced {
			return Record{}, fmt.Errorf("put %s: %w", rec.HealthID, ErrImmutable)
		}
		if base.LocalID != rec.LocalID {
			cur, err := s.backend.Load(ctx, rec.LocalID)
			switch {
			case err == nil && cur.Synced:
				return Record{}, fmt.Errorf("put %s: %w", rec.LocalID, ErrImmutable)
			case err == nil:
				superseded = rec.LocalID
			case !errors.Is(err, ErrNotFound):
				return Record{}, err
			}
			s.log.Debug("merging onto existing health id", "health_id", rec.HealthID,
				"local_id", base.LocalID, "incoming_local_id", rec.LocalID)
			rec.LocalID = base.LocalID
		}
		if _, ok := parseTime(base.CreatedAt); ok {
			rec.CreatedAt = base.CreatedAt
		}
		if _, ok := parseTime(rec.Timestamp); !ok {
			rec.Timestamp = base.Timestamp
		}
	}

	if _, ok := parseTime(rec.CreatedAt); !ok {
		rec.CreatedAt = formatTime(now)
	}
	if _, ok := parseTime(rec.Timestamp); !ok {
		rec.Timestamp = rec.CreatedAt
	}
	rec.UpdatedAt = formatTime(now)
	rec.Synced = false
	rec.SyncedAt = ""
	rec.ServerResponse = nil

	if err := s.save(ctx, rec); err != nil {
		return Record{}, err
	}

	if superseded != "" {
		if err := s.backend.Remove(ctx, superseded); err != nil {
			return Record{}, err
		}
		s.cache.invalidate()
	}

	return rec, nil
}

// mergeBase finds the stored record rec must merge onto: the best record with
// the same health id, else the record with the same local id.
func (s *Store) mergeBase(ctx context.Context, rec Record) (*Record, error) {
	matches, err := s.backend.FindByHealthID(ctx, rec.HealthID)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		best := matches[0]
		for _, m := range matches[1:] {
			if Prefer(m, best) {
				best = m
			}
		}
		return &best, nil
	}

	cur, err := s.backend.Load(ctx, rec.LocalID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cur, nil
}

func (s *Store) Get(ctx context.Context, localID string) (Record, error) {
	rec, err := s.backend.Load(ctx, localID)
	if err != nil {
		return Record{}, err
	}
	return s.decode(rec), nil
}

// GetAll returns every record decrypted, in no particular order.
func (s *Store) GetAll(ctx context.Context) ([]Record, error) {
	raw, err := s.backend.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(raw))
	for _, rec := range raw {
		out = append(out, s.decode(rec))
	}
	return out, nil
}

// GetUnsynced runs cleanup and returns records awaiting upload, oldest first.
// Fields that cannot be decoded are returned as stored.
func (s *Store) GetUnsynced(ctx context.Context) ([]Record, error) {
	raw, err := s.unsynced(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(raw))
	for _, rec := range raw {
		out = append(out, s.decode(rec))
	}
	return out, nil
}

// Outbox is GetUnsynced for upload. A record with a field that cannot be
// decoded is left out of ready and reported in unreadable instead.
func (s *Store) Outbox(ctx context.Context) (ready []Record, unreadable []*DecryptionError, err error) {
	raw, err := s.unsynced(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, rec := range raw {
		plain, derr := s.decodeStrict(rec)
		if derr != nil {
			unreadable = append(unreadable, derr)
			continue
		}
		ready = append(ready, plain)
	}
	return ready, unreadable, nil
}

// unsynced returns the stored, still encoded, unsynced records oldest first.
func (s *Store) unsynced(ctx context.Context) ([]Record, error) {
	if cached, ok := s.cache.get(); ok {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.cleanupLocked(ctx); err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}

	raw, err := s.backend.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, rec := range raw {
		if !rec.Synced {
			out = append(out, rec)
		}
	}
	sortByCreation(out)

	s.cache.set(out)
	return out, nil
}

// MarkSynced records a server confirmation and drops every other local
// record with the confirmed health id. Audit fields of an already synced
// record are kept.
func (s *Store) MarkSynced(ctx context.Context, localID string, ack Ack) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.backend.Load(ctx, localID)
	if err != nil {
		return Record{}, fmt.Errorf("mark synced %s: %w", localID, err)
	}

	if !rec.Synced {
		if ack.HealthID != "" && ack.HealthID != rec.HealthID {
			s.log.Info("health id confirmed by server", "local_id", localID,
				"provisional", rec.HealthID, "confirmed", ack.HealthID)
			rec.HealthID = ack.HealthID
		}
		now := formatTime(s.now())
		rec.Synced = true
		rec.SyncedAt = now
		rec.ServerResponse = ack.Response
		rec.UpdatedAt = now

		if err := s.backend.Save(ctx, rec); err != nil {
			return Record{}, err
		}
	}

	dups, err := s.backend.FindByHealthID(ctx, rec.HealthID)
	if err != nil {
		return Record{}, err
	}
	for _, d := range dups {
		if d.LocalID == localID {
			continue
		}
		if err := s.backend.Remove(ctx, d.LocalID); err != nil {
			return Record{}, err
		}
		s.log.Debug("removed duplicate after sync", "health_id", rec.HealthID, "local_id", d.LocalID)
	}

	s.cache.invalidate()
	return s.decode(rec), nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(ctx, localID); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

func (s *Store) save(ctx context.Context, rec Record) error {
	enc, err := s.encode(rec)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, enc); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

func (s *Store) encode(rec Record) (Record, error) {
	for _, f := range sensitiveFields(&rec) {
		enc, err := s.codec.Encode(*f.value)
		if err != nil {
			return Record{}, fmt.Errorf("encode %s: %w", f.name, err)
		}
		*f.value = enc
	}
	return rec, nil
}

func (s *Store) decode(rec Record) Record {
	for _, f := range sensitiveFields(&rec) {
		plain, err := s.codec.Decode(*f.value)
		if err != nil {
			derr := &DecryptionError{LocalID: rec.LocalID, HealthID: rec.HealthID, Field: f.name, Err: err}
			s.log.Debug("returning raw field", "error", derr)
			continue
		}
		*f.value = plain
	}
	return rec
}

func (s *Store) decodeStrict(rec Record) (Record, *DecryptionError) {
	for _, f := range sensitiveFields(&rec) {
		plain, err := s.codec.Decode(*f.value)
		if err != nil {
			return Record{}, &DecryptionError{LocalID: rec.LocalID, HealthID: rec.HealthID, Field: f.name, Err: err}
		}
		*f.value = plain
	}
	return rec, nil
}

type field struct {
	name  string
	value *string
}

func sensitiveFields(rec *Record) []field {
	return []field{
		{name: "childName", value: &rec.ChildName},
		{name: "guardianName", value: &rec.GuardianName},
		{name: "healthObservations", value: &rec.HealthObservations},
		{name: "photo", value: &rec.Photo},
	}
}

func collectedAt(rec Record, now time.Time) time.Time {
	if t, ok := parseTime(rec.DateCollected); ok {
		return t
	}
	return now
}

func sortByCreation(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		ti, _ := parseTime(recs[i].CreatedAt)
		tj, _ := parseTime(recs[j].CreatedAt)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return recs[i].LocalID < recs[j].LocalID
	})
}
