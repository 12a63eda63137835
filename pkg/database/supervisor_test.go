package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Farylve/TEST/pkg/errors"
)

func fastPolicy(tries uint) RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Second,
		MaxTries:        tries,
	}
}

func testSupervisor(policy RetryPolicy) (*Supervisor, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewSupervisor(DefaultPostgresConfig(), policy, l), &buf
}

func TestSupervisor_ConnectRetriesUntilSuccess(t *testing.T) {
	s, logs := testSupervisor(fastPolicy(5))

	var calls atomic.Int32
	s.dial = func(ctx context.Context) (*pgxpool.Pool, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("dial tcp 127.0.0.1:5432: connection refused")
		}
		return nil, nil
	}

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, s.Available())
	assert.Contains(t, logs.String(), "retrying")
}

func TestSupervisor_ConnectGivesUp(t *testing.T) {
	s, _ := testSupervisor(fastPolicy(3))

	var calls atomic.Int32
	s.dial = func(ctx context.Context) (*pgxpool.Pool, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}

	err := s.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to postgres")
	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, s.Available())
}

func TestSupervisor_ConnectHonoursContext(t *testing.T) {
	s, _ := testSupervisor(RetryPolicy{InitialInterval: time.Hour, MaxInterval: time.Hour})
	s.dial = func(ctx context.Context) (*pgxpool.Pool, error) {
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Connect(ctx)
	require.Error(t, err)
}

func TestSupervisor_PingTogglesAvailability(t *testing.T) {
	s, logs := testSupervisor(fastPolicy(1))
	s.available.Store(true)

	down := errors.New("connection reset by peer")
	s.ping = func(ctx context.Context) error { return down }

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.ErrorIs(t, err, down)
	assert.False(t, s.Available())
	assert.Contains(t, logs.String(), "postgres unreachable")

	s.ping = func(ctx context.Context) error { return nil }
	require.NoError(t, s.Ping(context.Background()))
	assert.True(t, s.Available())
	assert.Contains(t, logs.String(), "reachable again")
}

func TestSupervisor_WatchProbesUntilCancelled(t *testing.T) {
	s, _ := testSupervisor(fastPolicy(1))

	var probes atomic.Int32
	s.ping = func(ctx context.Context) error {
		probes.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Watch(ctx, 2*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return probes.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	assert.True(t, s.Available())
}

func TestSupervisor_PingBeforeConnect(t *testing.T) {
	s, _ := testSupervisor(fastPolicy(1))
	err := s.Ping(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Nil(t, s.Pool())

	s.Close()
	s.Close()
}
