package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendSender delivers mail through the Resend HTTP API
type ResendSender struct {
	client *resty.Client
}

type resendAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	ReplyTo     string             `json:"reply_to,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// NewResendSender creates a sender for apiKey. An empty baseURL points at the
// public API.
func NewResendSender(apiKey, baseURL string) *ResendSender {
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)

	return &ResendSender{client: client}
}

// Send posts the message to /emails and returns the Resend id
func (s *ResendSender) Send(ctx context.Context, msg *Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}

	body := resendRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}
	for _, a := range msg.Attachments {
		body.Attachments = append(body.Attachments, resendAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Data),
			ContentType: a.ContentType,
		})
	}

	var out resendResponse
	var apiErr resendError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return "", fmt.Errorf("resend request failed: %w", err)
	}

	if resp.IsError() {
		detail := apiErr.Message
		if detail == "" {
			detail = resp.Status()
		}
		return "", fmt.Errorf("resend API error (%d %s): %s", resp.StatusCode(), apiErr.Name, detail)
	}
	if out.ID == "" {
		return "", fmt.Errorf("resend API returned no id")
	}
	return out.ID, nil
}

// Name returns the provider name
func (s *ResendSender) Name() string {
	return "resend"
}
