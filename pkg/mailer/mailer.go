// Package mailer renders and sends transactional email.
package mailer

import (
	"context"
	"errors"
)

// Message is a single HTML email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("mailer: recipient address is required")
