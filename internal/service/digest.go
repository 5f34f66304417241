package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/digest"
	"github.com/perbu/artifacts/internal/email"
)

// DigestService composes and sends activity digests
type DigestService struct {
	db  *db.DB
	cfg *config.Config
}

// NewDigestService creates a new DigestService
func NewDigestService(database *db.DB, cfg *config.Config) *DigestService {
	return &DigestService{
		db:  database,
		cfg: cfg,
	}
}

func (s *DigestService) composer() *digest.Composer {
	return digest.NewComposer(s.db, s.cfg.Notify.SubjectPrefix)
}

// Preview returns the digest of period as markdown
func (s *DigestService) Preview(period digest.Period) (string, error) {
	d, err := s.composer().Compose(period)
	if err != nil {
		return "", fmt.Errorf("failed to compose digest: %w", err)
	}
	return d.Markdown(), nil
}

// Send mails the digest of period to the configured recipients, or just
// reports what would be sent when dryRun is set. Real sends require
// notify.enabled.
func (s *DigestService) Send(ctx context.Context, period digest.Period, dryRun bool, output io.Writer) (*digest.SendResult, error) {
	recipients := s.cfg.Notify.To
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no digest recipients configured (notify.to)")
	}

	var client email.Sender
	if dryRun {
		client = email.NewDryRunClient(io.Discard)
	} else {
		if !s.cfg.Notify.Enabled {
			return nil, fmt.Errorf("digest emails are disabled (set notify.enabled)")
		}
		apiKey := s.cfg.GetSendGridAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("SendGrid API key not configured (set %s or notify.sendgrid_api_key)", s.cfg.Notify.SendGridKeyEnv)
		}
		client = email.NewClient(apiKey, s.cfg.Notify.FromEmail, s.cfg.Notify.FromName)
	}

	sender := digest.NewSender(s.db, s.composer(), client, dryRun, output)
	result, err := sender.SendAll(ctx, period, recipients)
	if err != nil {
		return nil, err
	}

	slog.Info("digest run finished", "period", period.String(), "sent", result.Sent, "skipped", result.Skipped, "errors", result.Errors)
	return result, nil
}
