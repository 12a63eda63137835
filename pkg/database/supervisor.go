package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/Farylve/TEST/pkg/errors"
)

// ErrNotConnected is returned by Supervisor methods called before Connect succeeded.
var ErrNotConnected = errors.New("database not connected")

// RetryPolicy bounds the exponential backoff used while establishing the
// initial connection.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxTries        uint
}

// DefaultRetryPolicy starts at 500ms, doubles up to a 10s cap and gives up
// after one minute.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  time.Minute,
		MaxTries:        10,
	}
}

// Supervisor owns the lifecycle of the PostgreSQL pool: it connects with a
// backoff policy, reports health for readiness probes, and tracks whether
// the store is currently reachable. Query code never retries on its own.
type Supervisor struct {
	cfg    PostgresConfig
	policy RetryPolicy
	logger *slog.Logger

	mu   sync.RWMutex
	pool *pgxpool.Pool

	available atomic.Bool
	// dial is swapped in tests.
	dial func(ctx context.Context) (*pgxpool.Pool, error)
	// ping is swapped in tests.
	ping func(ctx context.Context) error
}

// NewSupervisor returns a supervisor for cfg. Connect must be called before
// the pool is used.
func NewSupervisor(cfg PostgresConfig, policy RetryPolicy, logger *slog.Logger) *Supervisor {
	s := &Supervisor{cfg: cfg, policy: policy, logger: logger}
	s.dial = s.openPool
	s.ping = s.pingPool
	return s
}

func (s *Supervisor) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := s.cfg.PoolConfig()
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return openPool(ctx, poolConfig)
}

// Connect establishes the pool, retrying with exponential backoff until the
// policy is exhausted or ctx is done.
func (s *Supervisor) Connect(ctx context.Context) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.policy.InitialInterval
	eb.MaxInterval = s.policy.MaxInterval

	opts := []backoff.RetryOption{
		backoff.WithBackOff(eb),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.WarnContext(ctx, "postgres connection failed, retrying",
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}),
	}
	if s.policy.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(s.policy.MaxElapsedTime))
	}
	if s.policy.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(s.policy.MaxTries))
	}

	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		return s.dial(ctx)
	}, opts...)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}

	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
	s.available.Store(true)

	s.logger.InfoContext(ctx, "connected to postgres",
		slog.String("host", s.cfg.Host),
		slog.String("database", s.cfg.DBName),
	)
	return nil
}

// Pool returns the connected pool, or nil before Connect.
func (s *Supervisor) Pool() *pgxpool.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool
}

func (s *Supervisor) pingPool(ctx context.Context) error {
	pool := s.Pool()
	if pool == nil {
		return ErrNotConnected
	}
	return pool.Ping(ctx)
}

// Ping checks connectivity once and records the result.
func (s *Supervisor) Ping(ctx context.Context) error {
	err := s.ping(ctx)
	s.setAvailable(ctx, err)
	if err != nil {
		return apperrors.Unavailable(err)
	}
	return nil
}

// Available reports the result of the most recent connect or probe.
func (s *Supervisor) Available() bool {
	return s.available.Load()
}

// Watch probes the store every interval until ctx is done, flipping the
// availability flag on transitions.
func (s *Supervisor) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			_ = s.Ping(probeCtx)
			cancel()
		}
	}
}

func (s *Supervisor) setAvailable(ctx context.Context, err error) {
	up := err == nil
	if prev := s.available.Swap(up); prev == up {
		return
	}
	if up {
		s.logger.InfoContext(ctx, "postgres reachable again")
		return
	}
	s.logger.ErrorContext(ctx, "postgres unreachable", slog.String("error", err.Error()))
}

// Close releases the pool. It is safe to call more than once.
func (s *Supervisor) Close() {
	s.mu.Lock()
	pool := s.pool
	s.pool = nil
	s.mu.Unlock()

	s.available.Store(false)
	if pool != nil {
		pool.Close()
	}
}
