package digest

import (
	"context"
	"fmt"
	"io"

	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/email"
)

// SendResult contains the result of a digest send operation
type SendResult struct {
	Recipients int
	Sent       int
	Skipped    int
	Errors     int
}

// Sender orchestrates the digest sending process
type Sender struct {
	db       *db.DB
	composer *Composer
	client   email.Sender
	dryRun   bool
	output   io.Writer
}

// NewSender creates a new digest sender
func NewSender(database *db.DB, composer *Composer, client email.Sender, dryRun bool, output io.Writer) *Sender {
	if output == nil {
		output = io.Discard
	}
	return &Sender{
		db:       database,
		composer: composer,
		client:   client,
		dryRun:   dryRun,
		output:   output,
	}
}

// SendAll sends the digest for period to every recipient that has not
// received it yet
func (s *Sender) SendAll(ctx context.Context, period Period, recipients []string) (*SendResult, error) {
	result := &SendResult{Recipients: len(recipients)}

	d, err := s.composer.Compose(period)
	if err != nil {
		return nil, fmt.Errorf("failed to compose digest: %w", err)
	}
	if d.Empty() {
		fmt.Fprintf(s.output, "No activity from %s, nothing to send\n", period)
		result.Skipped = len(recipients)
		return result, nil
	}

	for _, recipient := range recipients {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sent, err := s.db.HasDigestBeenSent(recipient, period.Start)
		if err != nil {
			fmt.Fprintf(s.output, "Error checking sends for %s: %v\n", recipient, err)
			result.Errors++
			continue
		}
		if sent {
			result.Skipped++
			continue
		}

		msg, err := s.composer.Email(d, recipient)
		if err != nil {
			fmt.Fprintf(s.output, "Error composing digest for %s: %v\n", recipient, err)
			result.Errors++
			continue
		}

		if s.dryRun {
			fmt.Fprintf(s.output, "[DRY RUN] Would send to %s: %s (%d characters)\n",
				recipient, msg.Subject, len(d.Characters))
			result.Sent++
			continue
		}

		messageID, err := s.client.Send(ctx, *msg)
		if err != nil {
			fmt.Fprintf(s.output, "Error sending to %s: %v\n", recipient, err)
			result.Errors++
			continue
		}

		// Record send for deduplication
		if err := s.db.CreateDigestSend(recipient, period.Start, period.End, messageID); err != nil {
			fmt.Fprintf(s.output, "Warning: failed to record send to %s: %v\n", recipient, err)
		}

		fmt.Fprintf(s.output, "Sent to %s: %s (%d characters)\n", recipient, msg.Subject, len(d.Characters))
		result.Sent++
	}

	return result, nil
}
