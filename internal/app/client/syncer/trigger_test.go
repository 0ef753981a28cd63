package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) Run(context.Context, ProgressFunc) (Summary, error) {
	r.runs.Add(1)
	return Summary{}, r.err
}

func pendingN(n int) PendingFunc {
	return func(context.Context) (int, error) { return n, nil }
}

func TestTrigger_SetOnline(t *testing.T) {
	ctx := context.Background()
	runner := &countingRunner{}
	tr := NewTrigger(runner, testIdentity, pendingN(0), slog.Default())

	fired, err := tr.SetOnline(ctx, true)
	require.NoError(t, err)
	assert.True(t, fired)

	fired, _ = tr.SetOnline(ctx, true)
	assert.False(t, fired, "already online")

	fired, _ = tr.SetOnline(ctx, false)
	assert.False(t, fired)

	fired, _ = tr.SetOnline(ctx, true)
	assert.True(t, fired)
	assert.Equal(t, int32(2), runner.runs.Load())
}

func TestTrigger_SetOnline_Unauthenticated(t *testing.T) {
	runner := &countingRunner{}
	tr := NewTrigger(runner, staticIdentity{}, pendingN(3), slog.Default())

	fired, err := tr.SetOnline(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Zero(t, runner.runs.Load())
}

func TestTrigger_OnAuthenticated(t *testing.T) {
	tests := []struct {
		name    string
		pending int
		want    bool
	}{
		{name: "pending records", pending: 2, want: true},
		{name: "nothing pending", pending: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			runner := &countingRunner{}
			tr := NewTrigger(runner, testIdentity, pendingN(tt.pending), slog.Default())

			fired, err := tr.OnAuthenticated(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fired)

			fired, _ = tr.OnAuthenticated(ctx)
			assert.False(t, fired, "fires once per sign in")

			tr.OnLoggedOut()
			fired, _ = tr.OnAuthenticated(ctx)
			assert.Equal(t, tt.want, fired)
		})
	}
}

func TestTrigger_InProgressIsNotAnError(t *testing.T) {
	runner := &countingRunner{err: ErrSyncInProgress}
	tr := NewTrigger(runner, testIdentity, pendingN(1), slog.Default())

	fired, err := tr.SetOnline(context.Background(), true)
	assert.NoError(t, err)
	assert.False(t, fired)
}

type flakyChecker struct {
	calls atomic.Int32
}

// HealthCheck fails on the first probe and succeeds afterwards.
func (c *flakyChecker) HealthCheck(context.Context) error {
	if c.calls.Add(1) == 1 {
		return errors.New("connection refused")
	}
	return nil
}

func TestMonitor_Run(t *testing.T) {
	runner := &countingRunner{}
	tr := NewTrigger(runner, testIdentity, pendingN(0), slog.Default())
	checker := &flakyChecker{}
	m := NewMonitor(checker, tr, 5*time.Millisecond, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int32(1), runner.runs.Load(), "only the offline to online edge fires")
}
