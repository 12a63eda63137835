package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects deliveries.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig holds configuration for the delivery circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the number of trial deliveries allowed while half-open.
	MaxRequests uint32
	// Interval clears failure counts while closed. 0 never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig opens after 5 straight failures for 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerSender stops hammering a failing mail server. While open, Send
// fails fast with ErrCircuitOpen instead of waiting on a dial timeout.
type BreakerSender struct {
	next    Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// NewBreakerSender wraps next with a circuit breaker. The breaker state is
// exported as notification_breaker_state when reg is non-nil.
func NewBreakerSender(next Sender, cfg BreakerConfig, reg prometheus.Registerer, logger *slog.Logger) *BreakerSender {
	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "notification_breaker_state",
		Help:        "Current state of the notification circuit breaker (0=closed, 1=half-open, 2=open)",
		ConstLabels: prometheus.Labels{"sender": next.Name()},
	})
	if reg != nil {
		reg.MustRegister(state)
	}

	settings := gobreaker.Settings{
		Name:        "notify-" + next.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A cancelled caller does not count against the mail server.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.Set(stateToFloat(to))
		},
	}

	return &BreakerSender{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:  logger,
	}
}

// Name returns the wrapped sender's name.
func (b *BreakerSender) Name() string {
	return b.next.Name()
}

// Send delivers msg through the breaker.
func (b *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.WarnContext(ctx, "notification rejected by open circuit",
			slog.String("sender", b.next.Name()),
			slog.String("kind", string(msg.Kind)),
		)
	}
	return err
}

// State reports the current breaker state.
func (b *BreakerSender) State() gobreaker.State {
	return b.breaker.State()
}
