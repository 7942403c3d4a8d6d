package mailer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-gomail/gomail"
	"github.com/google/uuid"
)

// SMTPConfig holds the relay settings for an SMTPSender
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Dialer sends gomail messages, satisfied by *gomail.Dialer
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers mail through an SMTP relay
type SMTPSender struct {
	dialer Dialer
	host   string
}

// NewSMTPSender creates a sender for the relay in cfg
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		host:   cfg.Host,
	}
}

// NewSMTPSenderWithDialer creates an SMTPSender around dialer, used in tests
func NewSMTPSenderWithDialer(dialer Dialer, host string) *SMTPSender {
	return &SMTPSender{dialer: dialer, host: host}
}

// Send builds the MIME message and hands it to the relay. The returned id is
// the generated Message-ID. The SMTP exchange itself cannot be cancelled, so
// a cancelled ctx only stops the caller from waiting.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}

	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.messageIDHost())
	m := buildGomailMessage(msg, id)

	errc := make(chan error, 1)
	go func() {
		errc <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return "", fmt.Errorf("smtp send failed: %w", err)
		}
		return id, nil
	case <-ctx.Done():
		return "", fmt.Errorf("smtp send aborted: %w", ctx.Err())
	}
}

// Name returns the provider name
func (s *SMTPSender) Name() string {
	return "smtp"
}

func (s *SMTPSender) messageIDHost() string {
	if s.host == "" {
		return "localhost"
	}
	return s.host
}

func buildGomailMessage(msg *Message, messageID string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	if messageID != "" {
		m.SetHeader("Message-ID", messageID)
	}

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	for _, att := range msg.Attachments {
		data := att.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if ct := strings.TrimSpace(att.ContentType); ct != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {ct},
			}))
		}
		m.Attach(att.Filename, settings...)
	}
	return m
}
