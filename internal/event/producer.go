package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Farylve/TEST/internal/domain"
	pkgkafka "github.com/Farylve/TEST/pkg/kafka"
	"github.com/Farylve/TEST/pkg/logger"
)

// Kafka topic constants for user lifecycle events.
const (
	TopicUserRegistered    = "blog.user.registered"
	TopicUserVerified      = "blog.user.email_verified"
	TopicUserPasswordReset = "blog.user.password_reset"
	TopicUserDeleted       = "blog.user.deleted"
)

// AggregateTypeUser is the aggregate type of every user event.
const AggregateTypeUser = "user"

// SourceBlogAPI identifies events originating from this service.
const SourceBlogAPI = "blog-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// UserRefData is the payload for events that only reference a user.
type UserRefData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Publisher emits user lifecycle events. Publishing is best effort: callers
// log failures and carry on.
type Publisher interface {
	UserRegistered(ctx context.Context, user *domain.User) error
	UserVerified(ctx context.Context, user *domain.User) error
	PasswordReset(ctx context.Context, user *domain.User) error
	UserDeleted(ctx context.Context, user *domain.User) error
}

type eventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes user events to Kafka.
type Producer struct {
	kafka  eventWriter
	logger *slog.Logger
}

// NewProducer creates a new event producer backed by a Kafka producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

var _ Publisher = (*Producer)(nil)

// UserRegistered publishes a user.registered event.
func (p *Producer) UserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	})
}

// UserVerified publishes a user.email_verified event.
func (p *Producer) UserVerified(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserVerified, user.ID, UserRefData{UserID: user.ID, Email: user.Email})
}

// PasswordReset publishes a user.password_reset event.
func (p *Producer) PasswordReset(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserPasswordReset, user.ID, UserRefData{UserID: user.ID, Email: user.Email})
}

// UserDeleted publishes a user.deleted event.
func (p *Producer) UserDeleted(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserDeleted, user.ID, UserRefData{UserID: user.ID, Email: user.Email})
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, userID, AggregateTypeUser, SourceBlogAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		event.WithRequestID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published user event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)
	return nil
}

// Noop discards events. It stands in when Kafka is disabled.
type Noop struct{}

var _ Publisher = Noop{}

func (Noop) UserRegistered(context.Context, *domain.User) error { return nil }
func (Noop) UserVerified(context.Context, *domain.User) error   { return nil }
func (Noop) PasswordReset(context.Context, *domain.User) error  { return nil }
func (Noop) UserDeleted(context.Context, *domain.User) error    { return nil }
