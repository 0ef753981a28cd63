package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

type Runner interface {
	Run(ctx context.Context, progress ProgressFunc) (Summary, error)
}

// PendingFunc reports how many records wait for upload.
type PendingFunc func(ctx context.Context) (int, error)

// Trigger decides when a sync starts on its own: when connectivity comes
// back and once after sign in. Manual runs go through Manual.
type Trigger struct {
	runner   Runner
	identity IdentityProvider
	pending  PendingFunc
	log      *slog.Logger

	mu        sync.Mutex
	online    bool
	authFired bool
}

func NewTrigger(runner Runner, identity IdentityProvider, pending PendingFunc, log *slog.Logger) *Trigger {
	return &Trigger{
		runner:   runner,
		identity: identity,
		pending:  pending,
		log:      log.With("component", "sync_trigger"),
	}
}

func (t *Trigger) Manual(ctx context.Context, progress ProgressFunc) (Summary, error) {
	return t.runner.Run(ctx, progress)
}

// SetOnline records the connectivity state and starts a sync on the
// offline to online edge while signed in.
func (t *Trigger) SetOnline(ctx context.Context, online bool) (bool, error) {
	t.mu.Lock()
	cameOnline := online && !t.online
	t.online = online
	t.mu.Unlock()

	if !cameOnline || !t.authenticated() {
		return false, nil
	}

	t.log.Info("connectivity restored, starting sync")
	return t.fire(ctx)
}

// OnAuthenticated starts one sync per sign in when records are pending.
func (t *Trigger) OnAuthenticated(ctx context.Context) (bool, error) {
	t.mu.Lock()
	if t.authFired {
		t.mu.Unlock()
		return false, nil
	}
	t.authFired = true
	t.mu.Unlock()

	n, err := t.pending(ctx)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	t.log.Info("signed in with pending records, starting sync", "pending", n)
	return t.fire(ctx)
}

func (t *Trigger) OnLoggedOut() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.authFired = false
}

func (t *Trigger) authenticated() bool {
	id, ok := t.identity.Identity()
	return ok && id.AuthToken != ""
}

func (t *Trigger) fire(ctx context.Context) (bool, error) {
	_, err := t.runner.Run(ctx, nil)
	if errors.Is(err, ErrSyncInProgress) {
		return false, nil
	}
	return err == nil, err
}

// HealthChecker probes the server.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Monitor polls the server and feeds the result to a Trigger.
type Monitor struct {
	checker  HealthChecker
	trigger  *Trigger
	interval time.Duration
	log      *slog.Logger
}

func NewMonitor(checker HealthChecker, trigger *Trigger, interval time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		checker:  checker,
		trigger:  trigger,
		interval: interval,
		log:      log.With("component", "connectivity_monitor"),
	}
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.probe(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	err := m.checker.HealthCheck(probeCtx)
	cancel()

	if err != nil {
		m.log.Debug("server unreachable", "error", err)
	}
	if _, err := m.trigger.SetOnline(ctx, err == nil); err != nil {
		m.log.Warn("automatic sync failed", "error", err)
	}
}
