// Package notify delivers out-of-band account messages such as email
// verification and password reset links.
package notify

import (
	"context"
	"errors"
)

// Kind identifies the template used for a message.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindWelcome       Kind = "welcome"
)

// ErrUnknownKind is returned when no template exists for a message kind.
var ErrUnknownKind = errors.New("unknown notification kind")

// Message is a single account notification addressed to one user.
type Message struct {
	Kind      Kind
	To        string
	FirstName string
	// Link is the action URL carried by verification and reset messages.
	Link string
	// ExpiresIn is a human readable token lifetime shown in the body.
	ExpiresIn string
}

// Sender defines the interface for delivering notifications through a channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
