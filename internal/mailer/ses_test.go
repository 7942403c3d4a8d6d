package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
)

// mockSESClient implements SendEmailAPI for testing
type mockSESClient struct {
	err       error
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-message-id")}, nil
}

func TestSESSender_Simple(t *testing.T) {
	mock := &mockSESClient{}
	s := NewSESSenderWithClient(mock)

	id, err := s.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "ses-message-id" {
		t.Errorf("id: got %q", id)
	}

	input := mock.lastInput
	if input.Content.Simple == nil {
		t.Fatal("expected simple content")
	}
	if got := *input.Content.Simple.Subject.Data; got != "New contact: Backend work" {
		t.Errorf("subject: got %q", got)
	}
	if got := *input.Content.Simple.Body.Html.Data; got != "<p>Hello</p>" {
		t.Errorf("html: got %q", got)
	}
	if len(input.ReplyToAddresses) != 1 || input.ReplyToAddresses[0] != "jane@acme.io" {
		t.Errorf("reply-to: got %v", input.ReplyToAddresses)
	}
}

func TestSESSender_RawWithAttachment(t *testing.T) {
	mock := &mockSESClient{}
	s := NewSESSenderWithClient(mock)

	msg := testMessage()
	msg.Attachments = []Attachment{{Filename: "brief.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}}

	if _, err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := mock.lastInput
	if input.Content.Raw == nil {
		t.Fatal("expected raw content")
	}
	raw := string(input.Content.Raw.Data)
	for _, want := range []string{
		"From: Portfolio <hello@portfolio.dev>",
		"Reply-To: jane@acme.io",
		"multipart/mixed",
		"Content-Type: application/pdf",
		"brief.pdf",
		"JVBERi0xLjQgdGVzdA==",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("raw message missing %q", want)
		}
	}
}

func TestSESSender_NoRetryOnError(t *testing.T) {
	mock := &mockSESClient{err: errors.New("throttled")}
	s := NewSESSenderWithClient(mock)

	if _, err := s.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error")
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}
}

func TestSESSender_Name(t *testing.T) {
	if got := NewSESSenderWithClient(&mockSESClient{}).Name(); got != "ses" {
		t.Errorf("Name(): got %q", got)
	}
}

func TestSESSender_RawLineLength(t *testing.T) {
	mock := &mockSESClient{}
	s := NewSESSenderWithClient(mock)

	msg := testMessage()
	msg.HTML = "<p>" + strings.Repeat("é", 2000) + "</p>"
	msg.Attachments = []Attachment{{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")}}

	if _, err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := string(mock.lastInput.Content.Raw.Data)
	for i, line := range strings.Split(raw, "\r\n") {
		if len(line) > 998 {
			t.Fatalf("line %d is %d bytes, want at most 998", i, len(line))
		}
	}
	if !strings.Contains(raw, "Content-Transfer-Encoding: quoted-printable") {
		t.Error("body part has no quoted-printable transfer encoding")
	}
	if strings.Contains(raw, "Message-Id:") || strings.Contains(raw, "Message-ID:") {
		t.Error("raw message should leave the Message-ID to SES")
	}
}
