// Package client wires the offline child health client: encrypted local
// store, REST transport, identity and the sync engine.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/exp/slog"

	"childhealth/internal/app/client/config"
	"childhealth/internal/app/client/crypto"
	"childhealth/internal/app/client/localstore"
	"childhealth/internal/app/client/syncer"
	"childhealth/internal/domain/record"
	"childhealth/internal/domain/user"
	"childhealth/internal/model"
)

var ErrNotAuthenticated = syncer.ErrNotAuthenticated

// Remote is the server API used by the client.
type Remote interface {
	syncer.Remote
	syncer.HealthChecker
	Register(ctx context.Context, req user.RegisterRequest) (syncer.Identity, error)
	Login(ctx context.Context, req user.LoginRequest) (syncer.Identity, error)
	Logout(ctx context.Context, token string) error
	ListRecords(ctx context.Context, token, ownerID string, page, limit int) (record.Page, error)
	GetRecord(ctx context.Context, token, healthID string) (record.Record, error)
}

type App struct {
	cfg      *config.Config
	log      *slog.Logger
	keys     *crypto.MasterKeyManager
	store    *localstore.Store
	remote   Remote
	identity *IdentityFile
	engine   *syncer.Engine
	trigger  *syncer.Trigger
}

// New opens the on-disk client state under cfg.DataDir.
func New(cfg *config.Config, log *slog.Logger, notifier syncer.Notifier) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	keys, err := crypto.NewMasterKeyManager(cfg.KeyPath(), cfg.SessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("open master key: %w", err)
	}

	backend, err := localstore.NewSQLiteBackend(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}

	identity, err := NewIdentityFile(cfg.IdentityPath())
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	store := localstore.New(backend, crypto.NewFieldCodec(keys), log,
		localstore.WithCacheTTL(cfg.Sync.CacheTTL))
	remote := NewHTTPClient(cfg.ServerURL, cfg.Sync.RequestTimeout, log)

	return newApp(cfg, log, keys, store, remote, identity, notifier), nil
}

func newApp(cfg *config.Config, log *slog.Logger, keys *crypto.MasterKeyManager, store *localstore.Store,
	remote Remote, identity *IdentityFile, notifier syncer.Notifier) *App {
	engine := syncer.NewEngine(store, remote, identity, notifier, syncer.Config{
		RequestTimeout: cfg.Sync.RequestTimeout,
		ItemDelay:      cfg.Sync.ItemDelay,
	}, log, syncer.WithReadyCheck(func() error {
		if keys.IsLocked() {
			return crypto.ErrLocked
		}
		return nil
	}))

	a := &App{
		cfg:      cfg,
		log:      log,
		keys:     keys,
		store:    store,
		remote:   remote,
		identity: identity,
		engine:   engine,
	}
	a.trigger = syncer.NewTrigger(engine, identity, a.pendingCount, log)

	return a
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) IsInitialized() bool {
	return a.keys.IsInitialized()
}

func (a *App) IsUnlocked() bool {
	return !a.keys.IsLocked()
}

// InitMasterKey creates the key protecting sensitive record fields.
func (a *App) InitMasterKey(passphrase string) error {
	return a.keys.Init(passphrase)
}

func (a *App) Unlock(passphrase string) error {
	return a.keys.Unlock(passphrase)
}

func (a *App) Lock() error {
	return a.keys.Lock()
}

func (a *App) ChangePassphrase(oldPassphrase, newPassphrase string) error {
	return a.keys.ChangePassphrase(oldPassphrase, newPassphrase)
}

func (a *App) CheckConnection(ctx context.Context) error {
	return a.remote.HealthCheck(ctx)
}

// Identity is the signed in worker, if any.
func (a *App) Identity() (syncer.Identity, bool) {
	return a.identity.Identity()
}

func (a *App) Register(ctx context.Context, req user.RegisterRequest) (syncer.Identity, error) {
	return a.remote.Register(ctx, req)
}

// Login signs in and, when records are waiting and the key is unlocked,
// starts a sync right away.
func (a *App) Login(ctx context.Context, req user.LoginRequest) (syncer.Identity, error) {
	id, err := a.remote.Login(ctx, req)
	if err != nil {
		return syncer.Identity{}, err
	}
	if err := a.identity.Save(id); err != nil {
		return syncer.Identity{}, err
	}

	a.log.Info("signed in", "owner_id", id.OwnerID)

	if a.keys.IsLocked() {
		a.log.Info("master key locked, sync after sign in skipped")
		return id, nil
	}
	if _, err := a.trigger.OnAuthenticated(ctx); err != nil {
		a.log.Warn("sync after sign in failed", "error", err)
	}

	return id, nil
}

// Logout cancels running syncs, revokes the session and forgets the identity.
// The local identity is cleared even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	a.engine.CancelAll()
	a.trigger.OnLoggedOut()

	var remoteErr error
	if id, ok := a.identity.Identity(); ok && id.AuthToken != "" {
		remoteErr = a.remote.Logout(ctx, id.AuthToken)
		if remoteErr != nil {
			a.log.Warn("server logout failed", "error", remoteErr)
		}
	}

	return errors.Join(a.identity.Clear(), remoteErr)
}

// AddRecord stores a new record offline. Collection time defaults to now.
func (a *App) AddRecord(ctx context.Context, rec model.Record) (localstore.Record, error) {
	if rec.DateCollected == "" {
		rec.DateCollected = time.Now().UTC().Format(time.RFC3339)
	}
	rec.IsOffline = true

	return a.store.Put(ctx, localstore.Record{Record: rec})
}

func (a *App) Records(ctx context.Context) ([]localstore.Record, error) {
	return a.store.GetAll(ctx)
}

func (a *App) Record(ctx context.Context, localID string) (localstore.Record, error) {
	return a.store.Get(ctx, localID)
}

func (a *App) PendingRecords(ctx context.Context) ([]localstore.Record, error) {
	return a.store.GetUnsynced(ctx)
}

func (a *App) DeleteRecord(ctx context.Context, localID string) error {
	return a.store.Delete(ctx, localID)
}

func (a *App) Cleanup(ctx context.Context) (localstore.Report, error) {
	return a.store.Cleanup(ctx)
}

// Sync runs one manual sync.
func (a *App) Sync(ctx context.Context, progress syncer.ProgressFunc) (syncer.Summary, error) {
	return a.trigger.Manual(ctx, progress)
}

// Watch polls the server and syncs whenever it becomes reachable, until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	return syncer.NewMonitor(a.remote, a.trigger, a.cfg.Sync.MonitorInterval, a.log).Run(ctx)
}

// RemoteRecords lists the server copy of the records uploaded by the signed in worker.
func (a *App) RemoteRecords(ctx context.Context, page, limit int) (record.Page, error) {
	id, ok := a.identity.Identity()
	if !ok || id.AuthToken == "" {
		return record.Page{}, ErrNotAuthenticated
	}
	return a.remote.ListRecords(ctx, id.AuthToken, id.OwnerID, page, limit)
}

func (a *App) RemoteRecord(ctx context.Context, healthID string) (record.Record, error) {
	id, ok := a.identity.Identity()
	if !ok || id.AuthToken == "" {
		return record.Record{}, ErrNotAuthenticated
	}
	return a.remote.GetRecord(ctx, id.AuthToken, healthID)
}

func (a *App) pendingCount(ctx context.Context) (int, error) {
	recs, err := a.store.GetUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}
