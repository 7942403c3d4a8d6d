package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/welldanyogia/portfolio-contact/internal/config"
)

// New builds the Sender selected by cfg.Provider, bounded by cfg.SendTimeout
func New(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (Sender, error) {
	var sender Sender

	switch cfg.Provider {
	case "", "log":
		sender = NewLogSender(logger)
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required for the resend provider")
		}
		sender = NewResendSender(cfg.ResendAPIKey, cfg.ResendBaseURL)
	case "ses":
		if cfg.AWSRegion == "" {
			return nil, fmt.Errorf("AWS_REGION is required for the ses provider")
		}
		ses, err := NewSESSender(ctx, SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		sender = ses
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required for the smtp provider")
		}
		sender = NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}

	return WithTimeout(sender, cfg.SendTimeout), nil
}
