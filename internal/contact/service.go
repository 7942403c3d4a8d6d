package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/welldanyogia/portfolio-contact/internal/attachment"
	"github.com/welldanyogia/portfolio-contact/internal/compose"
	"github.com/welldanyogia/portfolio-contact/internal/logger"
	"github.com/welldanyogia/portfolio-contact/internal/mailer"
	"github.com/welldanyogia/portfolio-contact/internal/metrics"
	"github.com/welldanyogia/portfolio-contact/internal/ratelimit"
	"github.com/welldanyogia/portfolio-contact/internal/rules"
	"github.com/welldanyogia/portfolio-contact/internal/sanitizer"
	"github.com/welldanyogia/portfolio-contact/internal/spam"
)

// Submission outcomes used as metric labels
const (
	outcomeAccepted           = "accepted"
	outcomeRateLimited        = "rate_limited"
	outcomeMissingFields      = "missing_fields"
	outcomeInvalid            = "invalid"
	outcomeSpam               = "spam"
	outcomeInvalidAttachment  = "invalid_attachment"
	outcomeNotificationFailed = "notification_failed"
	outcomeError              = "error"
)

// Config holds the pipeline settings
type Config struct {
	Rules              rules.RuleSet
	MaxAttachmentBytes int64
	Alternative        AlternativeConfig
}

// Service runs one submission through the pipeline
type Service struct {
	cfg      Config
	limiter  *ratelimit.Limiter
	detector *spam.Detector
	composer *compose.Composer
	sender   mailer.Sender
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new Service instance
func NewService(cfg Config, limiter *ratelimit.Limiter, detector *spam.Detector, composer *compose.Composer, sender mailer.Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		detector = spam.NewDefaultDetector()
	}
	if cfg.MaxAttachmentBytes <= 0 {
		cfg.MaxAttachmentBytes = attachment.DefaultMaxBytes
	}
	return &Service{
		cfg:      cfg,
		limiter:  limiter,
		detector: detector,
		composer: composer,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit runs Admit and then Process. It stops at the first gate that
// rejects the request. Rejections are returned as *RateLimitError,
// *ValidationError, *SpamError or *DeliveryError; any other error is
// unexpected.
func (s *Service) Submit(ctx context.Context, ip string, req Request) (*Result, error) {
	decision, err := s.Admit(ctx, ip)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, ip, decision, req)
}

// Admit consumes one unit of the client's quota. It runs before the body is
// read so malformed requests count against the limit too.
func (s *Service) Admit(ctx context.Context, ip string) (ratelimit.Decision, error) {
	decision, err := s.limiter.Allow(ctx, ip)
	if err != nil {
		metrics.RecordSubmission(outcomeError)
		return decision, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !decision.Allowed {
		metrics.RecordSubmission(outcomeRateLimited)
		logger.WithCorrelationID(ctx, s.logger).Warn("Contact submission rate limited",
			slog.String("client_ip", ip),
			slog.Time("reset_at", decision.ResetAt),
		)
		return decision, &RateLimitError{Decision: decision}
	}
	return decision, nil
}

// Process runs an admitted submission through the remaining gates and
// delivers it
func (s *Service) Process(ctx context.Context, ip string, decision ratelimit.Decision, req Request) (*Result, error) {
	log := logger.WithCorrelationID(ctx, s.logger).With(slog.String("client_ip", ip))

	// Presence is checked on sanitised values so input that is only markup
	// counts as missing.
	fields := sanitizeFields(req.Fields())

	if missing := s.cfg.Rules.Missing(fields); len(missing) > 0 {
		metrics.RecordSubmission(outcomeMissingFields)
		details := make(map[string]string, len(missing))
		for _, f := range missing {
			details[f] = "This field is required"
		}
		return nil, &ValidationError{
			Code:    CodeMissingFields,
			Message: "Missing required fields: " + strings.Join(missing, ", "),
			Fields:  details,
		}
	}

	if verr := s.validate(fields); verr != nil {
		metrics.RecordSubmission(outcomeInvalid)
		return nil, verr
	}

	verdict := s.detector.Check(spam.Input{
		Name:          fields.Name,
		Email:         fields.Email,
		Subject:       fields.Subject,
		Category:      fields.Category,
		Message:       fields.Message,
		Phone:         fields.Phone,
		ContactMethod: fields.ContactMethod,
		Budget:        fields.Budget,
	})
	if verdict.IsSpam {
		return nil, s.rejectSpam(log, fields, req, verdict)
	}

	file, err := attachment.ParseDataURL(req.FileData, req.FileName, req.FileType, s.cfg.MaxAttachmentBytes)
	if err != nil {
		metrics.RecordSubmission(outcomeInvalidAttachment)
		log.Warn("Contact attachment rejected", slog.String("file_name", req.FileName), slog.Any("error", err))
		return nil, &ValidationError{Code: CodeInvalidAttachment, Message: err.Error()}
	}

	sub := compose.Submission{Fields: fields, ReceivedAt: s.now()}
	kind := compose.ClassifyClient(fields.Category, fields.Message)

	notification, err := s.composer.Notification(sub, file)
	if err != nil {
		metrics.RecordSubmission(outcomeError)
		return nil, err
	}
	autoReply, err := s.composer.AutoReply(sub, kind)
	if err != nil {
		metrics.RecordSubmission(outcomeError)
		return nil, err
	}

	// Sends outlive the request so a client disconnect cannot abort a
	// half-finished delivery. mailer.WithTimeout bounds them.
	out := s.dispatch(context.WithoutCancel(ctx), log, notification, autoReply)

	if out.notifyErr != nil {
		metrics.RecordSubmission(outcomeNotificationFailed)
		log.Error("Contact notification failed",
			slog.String("provider", s.sender.Name()),
			slog.Any("error", out.notifyErr),
		)
		return nil, &DeliveryError{Provider: s.sender.Name(), Err: out.notifyErr}
	}
	if out.replyErr != nil {
		log.Warn("Contact auto-reply failed", slog.String("provider", s.sender.Name()), slog.Any("error", out.replyErr))
	}

	metrics.RecordSubmission(outcomeAccepted)
	log.Info("Contact submission delivered",
		slog.String("notification_id", out.notifyID),
		slog.String("auto_reply_id", out.replyID),
		slog.String("client_kind", kind.String()),
		slog.Bool("file_attached", file != nil),
		slog.Bool("attachment_issue", out.attachmentIssue),
	)

	return &Result{
		Message:         "Thank you for your message. I'll get back to you soon.",
		NotificationID:  out.notifyID,
		AutoReplyID:     out.replyID,
		AutoReplySent:   out.replyErr == nil,
		FileAttached:    file != nil && !out.attachmentIssue,
		AttachmentIssue: out.attachmentIssue,
		ClientKind:      kind.String(),
		RateLimit:       decision,
	}, nil
}

func sanitizeFields(f rules.Fields) rules.Fields {
	for _, name := range rules.FieldOrder {
		f.Set(name, sanitizer.Field(f.Get(name)))
	}
	return f
}

// validate applies the shared rule set. A message that only breaks the
// capitalisation or link rule is left to the spam gate, which applies the
// same thresholds and answers with a reference id instead of a field error.
func (s *Service) validate(f rules.Fields) *ValidationError {
	errs := s.cfg.Rules.All(f)
	if _, ok := errs[rules.FieldMessage]; ok && isPolicyViolation(f.Message) {
		delete(errs, rules.FieldMessage)
	}
	if len(errs) == 0 {
		return nil
	}

	if msg, ok := errs[rules.FieldEmail]; ok && len(errs) == 1 {
		return &ValidationError{Code: CodeInvalidEmail, Message: msg, Fields: errs}
	}

	first, _ := rules.FirstInvalid(errs)
	return &ValidationError{Code: CodeValidationError, Message: errs[first], Fields: errs}
}

func isPolicyViolation(message string) bool {
	if !rules.ValidateMessageLength(message).Valid {
		return false
	}
	return rules.IsShouting(message) || rules.CountURLs(message) > rules.MaxMessageURLs
}

func (s *Service) rejectSpam(log *slog.Logger, f rules.Fields, req Request, verdict spam.Verdict) error {
	ref := spam.NewReferenceID(s.now())
	metrics.RecordSubmission(outcomeSpam)
	metrics.RecordSpam(verdict.Rule)

	log.Warn("Contact submission flagged as spam",
		slog.String("reference_id", ref),
		slog.String("reason", verdict.Reason),
		slog.Group("submission",
			slog.String("name", f.Name),
			slog.String("email", f.Email),
			slog.String("subject", f.Subject),
			slog.String("category", f.Category),
			slog.String("message", f.Message),
			slog.String("phone", f.Phone),
			slog.String("contact_method", f.ContactMethod),
			slog.String("budget", f.Budget),
			slog.String("file_name", req.FileName),
		),
	)

	return &SpamError{
		ReferenceID: ref,
		Reason:      verdict.Reason,
		Alternative: s.cfg.Alternative.For(f.Email, ref),
	}
}

type dispatchOutcome struct {
	notifyID        string
	notifyErr       error
	replyID         string
	replyErr        error
	attachmentIssue bool
}

// dispatch sends both emails concurrently and waits for both to settle.
// Neither send can fail or block the other.
func (s *Service) dispatch(ctx context.Context, log *slog.Logger, notification, autoReply *mailer.Message) dispatchOutcome {
	var (
		out dispatchOutcome
		wg  sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		out.notifyID, out.attachmentIssue, out.notifyErr = s.sendNotification(ctx, log, notification)
	}()
	go func() {
		defer wg.Done()
		out.replyID, out.replyErr = s.send(ctx, "auto_reply", autoReply)
	}()
	wg.Wait()

	return out
}

// sendNotification retries once without attachments when the provider
// rejected the attached file. Other failures are not retried to avoid
// duplicate delivery.
func (s *Service) sendNotification(ctx context.Context, log *slog.Logger, msg *mailer.Message) (string, bool, error) {
	id, err := s.send(ctx, "notification", msg)
	if err == nil || !msg.HasAttachments() || !mailer.IsAttachmentError(err) {
		return id, false, err
	}

	log.Warn("Notification rejected because of its attachment, retrying without it", slog.Any("error", err))
	id, retryErr := s.send(ctx, "notification", msg.WithoutAttachments())
	metrics.RecordAttachmentRetry(retryErr)
	if retryErr != nil {
		return "", false, errors.Join(err, retryErr)
	}
	return id, true, nil
}

func (s *Service) send(ctx context.Context, kind string, msg *mailer.Message) (string, error) {
	start := time.Now()
	id, err := s.sender.Send(ctx, msg)
	metrics.RecordEmailSend(kind, s.sender.Name(), err, time.Since(start))
	return id, err
}
