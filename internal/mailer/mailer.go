// Package mailer delivers composed contact emails through a pluggable
// provider. The contact pipeline only sees the Sender interface and treats
// every provider as slow and fallible.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Attachment is a file carried by a Message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound email
type Message struct {
	From        string
	To          []string
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// HasAttachments reports whether the message carries any file
func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// WithoutAttachments returns a copy of m with the attachments dropped
func (m *Message) WithoutAttachments() *Message {
	c := *m
	c.To = append([]string(nil), m.To...)
	c.Attachments = nil
	return &c
}

// Sender delivers a message and returns the provider's delivery id
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
	Name() string
}

// ErrInvalidMessage is returned for messages no provider can deliver
var ErrInvalidMessage = errors.New("invalid message")

func validate(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if msg.From == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: missing recipient", ErrInvalidMessage)
	}
	if msg.HTML == "" && msg.Text == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}

// attachmentKeywords mark a provider error as caused by the attached file
var attachmentKeywords = []string{"attachment", "file", "base64"}

// IsAttachmentError reports whether err looks like a rejection of the
// attachment rather than of the message as a whole.
func IsAttachmentError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, kw := range attachmentKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

type timeoutSender struct {
	next    Sender
	timeout time.Duration
}

// WithTimeout bounds every Send of next by d. A non-positive d returns next
// unchanged.
func WithTimeout(next Sender, d time.Duration) Sender {
	if d <= 0 {
		return next
	}
	return &timeoutSender{next: next, timeout: d}
}

func (s *timeoutSender) Send(ctx context.Context, msg *Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := s.next.Send(ctx, msg)
		done <- result{id, err}
	}()

	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("%s send timed out after %s: %w", s.next.Name(), s.timeout, ctx.Err())
	}
}

func (s *timeoutSender) Name() string {
	return s.next.Name()
}
