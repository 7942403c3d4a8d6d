// Package contact is the submission pipeline behind POST /api/contact:
// rate limit, presence, sanitise, validate, spam check, compose and the
// dual email dispatch.
package contact

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/welldanyogia/portfolio-contact/internal/ratelimit"
	"github.com/welldanyogia/portfolio-contact/internal/rules"
)

// Error codes for API responses
const (
	CodeMissingFields      = "MISSING_FIELDS"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeInvalidAttachment  = "INVALID_ATTACHMENT"
	CodeSpamDetected       = "SPAM_DETECTED"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeNotificationFailed = "NOTIFICATION_FAILED"
	CodeEmailServiceError  = "EMAIL_SERVICE_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Request is the JSON body of POST /api/contact. FileData is a
// data:<mime>;base64,<payload> URL.
type Request struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Subject       string `json:"subject"`
	Category      string `json:"category,omitempty"`
	Message       string `json:"message"`
	Phone         string `json:"phone,omitempty"`
	ContactMethod string `json:"preferredContactMethod,omitempty"`
	Budget        string `json:"budgetRange,omitempty"`
	FileData      string `json:"fileData,omitempty"`
	FileName      string `json:"fileName,omitempty"`
	FileType      string `json:"fileType,omitempty"`
}

// Fields returns the text fields of the request
func (r Request) Fields() rules.Fields {
	return rules.Fields{
		Name:          r.Name,
		Email:         r.Email,
		Subject:       r.Subject,
		Category:      r.Category,
		Message:       r.Message,
		Phone:         r.Phone,
		ContactMethod: r.ContactMethod,
		Budget:        r.Budget,
	}
}

// Result is returned to the client after the notification was delivered
type Result struct {
	Message         string             `json:"message"`
	NotificationID  string             `json:"notificationId"`
	AutoReplyID     string             `json:"autoReplyId,omitempty"`
	AutoReplySent   bool               `json:"autoReplySent"`
	FileAttached    bool               `json:"fileAttached"`
	AttachmentIssue bool               `json:"attachmentIssue"`
	ClientKind      string             `json:"clientKind"`
	RateLimit       ratelimit.Decision `json:"-"`
}

// AlternativeContact is offered to senders whose submission was flagged
type AlternativeContact struct {
	Email    string `json:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
}

// AlternativeConfig holds the operator's direct channels
type AlternativeConfig struct {
	Email          string
	LinkedInURL    string
	WhatsAppNumber string
}

// For builds the alternative-contact payload for one rejected sender. The
// WhatsApp link is pre-filled with the sender's address and the reference.
func (c AlternativeConfig) For(senderEmail, referenceID string) *AlternativeContact {
	alt := &AlternativeContact{
		Email:    c.Email,
		LinkedIn: c.LinkedInURL,
	}
	if number := digitsOnly(c.WhatsAppNumber); number != "" {
		text := fmt.Sprintf("Hi, my contact form message was flagged (reference %s). You can reach me at %s.", referenceID, senderEmail)
		alt.WhatsApp = "https://wa.me/" + number + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	}
	return alt
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidationError rejects a submission the user can correct. Code is one of
// CodeMissingFields, CodeValidationError, CodeInvalidEmail or
// CodeInvalidAttachment and Fields maps field names to their messages.
type ValidationError struct {
	Code    string
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SpamError is a policy rejection. The submission is logged under
// ReferenceID for manual review.
type SpamError struct {
	ReferenceID string
	Reason      string
	Alternative *AlternativeContact
}

func (e *SpamError) Error() string {
	return fmt.Sprintf("submission %s flagged as spam: %s", e.ReferenceID, e.Reason)
}

// RateLimitError is returned when the client IP used up its quota
type RateLimitError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d submissions exceeded until %s", e.Decision.Limit, e.Decision.ResetAt.UTC().Format(time.RFC3339))
}

// DeliveryError means the notification to the operator could not be sent,
// even after the attachment-stripped retry
type DeliveryError struct {
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
