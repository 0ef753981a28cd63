// Package syncer uploads unsynced local records and reconciles the server's
// answer back into the local store.
//
// A run sends every unsynced record in one batch. When the batch call fails
// at the transport level the same records are sent one by one. Records the
// server accepted are marked synced; the rest stay unsynced for the next run.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"childhealth/internal/app/client/localstore"
	"childhealth/internal/model"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultItemDelay      = 200 * time.Millisecond
)

type Config struct {
	RequestTimeout time.Duration
	ItemDelay      time.Duration
}

type Engine struct {
	store    Store
	remote   Remote
	identity IdentityProvider
	notifier Notifier
	cfg      Config
	log      *slog.Logger

	onState func(State)
	ready   func() error
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]*Token
}

type Option func(*Engine)

// WithStateHook observes every state transition of a run.
func WithStateHook(fn func(State)) Option {
	return func(e *Engine) { e.onState = fn }
}

// WithReadyCheck is consulted before every run. A non-nil error aborts the
// run before any record is read.
func WithReadyCheck(fn func() error) Option {
	return func(e *Engine) { e.ready = fn }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, remote Remote, identity IdentityProvider, notifier Notifier, cfg Config, log *slog.Logger, opts ...Option) *Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ItemDelay < 0 {
		cfg.ItemDelay = 0
	}

	e := &Engine{
		store:    store,
		remote:   remote,
		identity: identity,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With("component", "syncer"),
		onState:  func(State) {},
		ready:    func() error { return nil },
		now:      time.Now,
		inflight: make(map[string]*Token),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one sync for the current identity. Overlapping runs for the
// same owner fail fast with ErrSyncInProgress.
func (e *Engine) Run(ctx context.Context, progress ProgressFunc) (Summary, error) {
	id, ok := e.identity.Identity()
	if !ok || id.AuthToken == "" {
		e.notifier.Notify(SeverityError, "Sign in to sync records")
		return Summary{}, ErrNotAuthenticated
	}
	if err := e.ready(); err != nil {
		e.notifier.Notify(SeverityError, "Unlock the local key to sync records")
		return Summary{}, err
	}
	if progress == nil {
		progress = func(Progress) {}
	}

	tok, err := e.acquire(ctx, id.OwnerID)
	if err != nil {
		return Summary{}, err
	}
	defer e.release(id.OwnerID)

	defer e.setState(StateIdle)

	e.setState(StateCollecting)
	pending, unreadable, err := e.store.Outbox(tok.Context())
	if err != nil {
		e.notifier.Notify(SeverityError, "Could not read local records")
		return Summary{}, fmt.Errorf("collect unsynced: %w", err)
	}

	withheld := make([]RecordFailure, 0, len(unreadable))
	for _, derr := range unreadable {
		e.log.Warn("record withheld from upload", "local_id", derr.LocalID, "error", derr)
		withheld = append(withheld, RecordFailure{
			LocalID:  derr.LocalID,
			HealthID: derr.HealthID,
			Error:    "local record cannot be decrypted",
		})
	}

	if len(pending) == 0 {
		if len(withheld) == 0 {
			e.log.Debug("nothing to sync", "owner_id", id.OwnerID)
			return Summary{}, nil
		}
		summary := Summary{FailedCount: len(withheld), Failures: withheld}
		e.report(summary)
		return summary, nil
	}

	payload := e.stamp(pending, id)
	e.log.Info("sync started", "owner_id", id.OwnerID, "records", len(payload))

	out := outcomes{failed: withheld}

	e.setState(StateBatchUploading)
	batch, err := e.uploadBatch(ctx, id.AuthToken, payload)
	if err == nil {
		e.setState(StateBatchOK)
		res := batchOutcomes(payload, batch)
		out.accepted = res.accepted
		out.failed = append(out.failed, res.failed...)
		out.mode = ModeBatch
		progress(Progress{Completed: len(payload), Total: len(payload), Percent: 100})
	} else {
		e.setState(StateBatchFailed)
		e.log.Warn("batch upload failed, falling back to single uploads", "error", err)
		e.notifier.Notify(SeverityWarning, "Batch upload failed, uploading records one by one")

		e.setState(StateIndividualUploading)
		res := e.uploadEach(ctx, id.AuthToken, payload, progress)
		out.accepted = res.accepted
		out.failed = append(out.failed, res.failed...)
		out.mode = ModeIndividual
	}

	e.setState(StateReconciling)
	summary, err := e.reconcile(tok, out)

	e.report(summary)
	return summary, err
}

// CancelAll cancels the tokens of all in-flight runs.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for owner, tok := range e.inflight {
		e.log.Info("cancelling sync", "owner_id", owner)
		tok.Cancel()
	}
}

// InProgress reports whether a run for ownerID is active.
func (e *Engine) InProgress(ownerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.inflight[ownerID]
	return ok
}

func (e *Engine) acquire(ctx context.Context, ownerID string) (*Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inflight[ownerID]; busy {
		return nil, ErrSyncInProgress
	}
	tok := NewToken(ctx)
	e.inflight[ownerID] = tok
	return tok, nil
}

func (e *Engine) release(ownerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tok, ok := e.inflight[ownerID]; ok {
		tok.Cancel()
		delete(e.inflight, ownerID)
	}
}

func (e *Engine) setState(s State) {
	e.log.Debug("sync state", "state", s.String())
	e.onState(s)
}

// stamp attaches the uploader identity to outbound copies of the records.
func (e *Engine) stamp(recs []localstore.Record, id Identity) []model.Record {
	uploadedAt := e.now().UTC().Format(time.RFC3339)

	out := make([]model.Record, len(recs))
	for i, rec := range recs {
		m := rec.Record
		m.UploadedBy = id.Name
		m.UploaderOwnerID = id.OwnerID
		m.UploaderEmployeeID = id.EmployeeID
		m.UploadedAt = uploadedAt
		out[i] = m
	}
	return out
}

func (e *Engine) uploadBatch(ctx context.Context, token string, recs []model.Record) (BatchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	return e.remote.BatchCreate(callCtx, token, recs)
}

// uploadEach gives every record exactly one attempt, in order, pausing
// between attempts. Individual failures never stop the loop.
func (e *Engine) uploadEach(ctx context.Context, token string, recs []model.Record, progress ProgressFunc) outcomes {
	var out outcomes

	for i, rec := range recs {
		if i > 0 && e.cfg.ItemDelay > 0 {
			sleep(ctx, e.cfg.ItemDelay)
		}

		res, err := e.createOne(ctx, token, rec)
		if err != nil {
			e.log.Info("record upload failed", "local_id", rec.LocalID, "health_id", rec.HealthID, "error", err)
			out.failed = append(out.failed, failureOf(rec, err.Error()))
		} else {
			out.accepted = append(out.accepted, acceptance{
				localID: rec.LocalID,
				ack:     localstore.Ack{HealthID: res.Record.HealthID, Response: res.Raw},
			})
		}

		done := i + 1
		progress(Progress{
			Completed: done,
			Total:     len(recs),
			Percent:   float64(done) * 100 / float64(len(recs)),
			Current:   rec.HealthID,
		})
	}

	return out
}

func (e *Engine) createOne(ctx context.Context, token string, rec model.Record) (CreateResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	return e.remote.Create(callCtx, token, rec)
}

// reconcile marks accepted records synced. A cancelled token stops local
// writes; records not yet marked are reported as failed.
func (e *Engine) reconcile(tok *Token, out outcomes) (Summary, error) {
	summary := Summary{Mode: out.mode}

	for _, f := range out.failed {
		summary.FailedCount++
		summary.Failures = append(summary.Failures, f)
	}

	for i, a := range out.accepted {
		if err := tok.Err(); err != nil {
			for _, rest := range out.accepted[i:] {
				summary.FailedCount++
				summary.Failures = append(summary.Failures, RecordFailure{
					LocalID:  rest.localID,
					HealthID: rest.ack.HealthID,
					Error:    "sync cancelled",
				})
			}
			e.log.Info("sync cancelled during reconcile", "remaining", len(out.accepted)-i)
			return summary, err
		}

		_, err := e.store.MarkSynced(tok.Context(), a.localID, a.ack)
		switch {
		case err == nil, errors.Is(err, localstore.ErrNotFound):
			summary.SyncedCount++
		default:
			e.log.Error("mark synced", "local_id", a.localID, "error", err)
			summary.FailedCount++
			summary.Failures = append(summary.Failures, RecordFailure{
				LocalID:  a.localID,
				HealthID: a.ack.HealthID,
				Error:    err.Error(),
			})
		}
	}

	return summary, nil
}

func (e *Engine) report(s Summary) {
	e.log.Info("sync finished", "mode", string(s.Mode), "synced", s.SyncedCount, "failed", s.FailedCount)

	switch {
	case s.SyncedCount == 0 && s.FailedCount == 0:
	case s.FailedCount == 0:
		e.notifier.Notify(SeveritySuccess, fmt.Sprintf("Synced %d records", s.SyncedCount))
	case s.SyncedCount == 0:
		e.notifier.Notify(SeverityError, fmt.Sprintf("Sync failed for %d records", s.FailedCount))
	default:
		e.notifier.Notify(SeverityWarning,
			fmt.Sprintf("Synced %d records, %d failed and will be retried", s.SyncedCount, s.FailedCount))
	}
}

type acceptance struct {
	localID string
	ack     localstore.Ack
}

type outcomes struct {
	mode     Mode
	accepted []acceptance
	failed   []RecordFailure
}

// batchOutcomes correlates the batch answer with the sent records by local
// id, falling back to health id. Sent records the server did not mention
// are failures.
func batchOutcomes(sent []model.Record, res BatchResult) outcomes {
	var out outcomes

	byLocal := make(map[string]model.Record, len(sent))
	byHealth := make(map[string]model.Record, len(sent))
	for _, rec := range sent {
		byLocal[rec.LocalID] = rec
		byHealth[rec.HealthID] = rec
	}

	seen := make(map[string]bool, len(sent))
	lookup := func(r model.Record) (model.Record, bool) {
		if rec, ok := byLocal[r.LocalID]; ok && r.LocalID != "" {
			return rec, true
		}
		rec, ok := byHealth[r.HealthID]
		return rec, ok && r.HealthID != ""
	}

	for _, a := range res.Successful {
		rec, ok := lookup(a.Record)
		if !ok || seen[rec.LocalID] {
			continue
		}
		seen[rec.LocalID] = true
		out.accepted = append(out.accepted, acceptance{
			localID: rec.LocalID,
			ack:     localstore.Ack{HealthID: a.Record.HealthID, Response: a.Raw},
		})
	}

	for _, f := range res.Failed {
		rec, ok := lookup(f.Record)
		if !ok || seen[rec.LocalID] {
			continue
		}
		seen[rec.LocalID] = true
		out.failed = append(out.failed, failureOf(rec, f.Error))
	}

	for _, rec := range sent {
		if !seen[rec.LocalID] {
			out.failed = append(out.failed, failureOf(rec, "missing from server response"))
		}
	}

	return out
}

func failureOf(rec model.Record, msg string) RecordFailure {
	return RecordFailure{LocalID: rec.LocalID, HealthID: rec.HealthID, Error: msg}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
