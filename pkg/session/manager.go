package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/launchpad/internal/logging"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Manager orchestrates record persistence and cross-replica locking.
type Manager struct {
	store   ports.SessionStore
	locks   *keyedMutex
	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   newKeyedMutex(),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes fn while holding the local and (if configured) distributed lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	unlockLocal := m.locks.Lock(key)
	defer unlockLocal()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// A fresh context: the caller's may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Record persists rec. Failures are logged: records describe sessions, they never gate them.
func (m *Manager) Record(ctx context.Context, rec domain.SessionRecord) {
	if m == nil || m.store == nil {
		return
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Warn("failed to save session record", "session", rec.ID, "run", rec.RunID, "err", err)
	}
}

// Load returns the record stored under key.
func (m *Manager) Load(ctx context.Context, key string) (domain.SessionRecord, error) {
	if m.store == nil {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return m.store.Load(ctx, key)
}

// List returns all records.
func (m *Manager) List(ctx context.Context) ([]domain.SessionRecord, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.List(ctx)
}

// Prune deletes records of sessions that are no longer running.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	records, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, rec := range records {
		if rec.Status == domain.SessionRunning {
			continue
		}
		if err := m.store.Delete(ctx, rec.Key()); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

