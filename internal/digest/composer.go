// Package digest turns the action journal into a periodic activity report.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/email"
)

// MaxFailures caps the failed actions listed in one digest.
const MaxFailures = 20

// Period is the half-open interval [Start, End) a digest covers.
type Period struct {
	Start time.Time
	End   time.Time
}

// Daily returns the UTC calendar day before now.
func Daily(now time.Time) Period {
	end := now.UTC().Truncate(24 * time.Hour)
	return Period{Start: end.Add(-24 * time.Hour), End: end}
}

// Last returns the period of length d ending at now.
func Last(now time.Time, d time.Duration) Period {
	return Period{Start: now.Add(-d).UTC(), End: now.UTC()}
}

func (p Period) String() string {
	return fmt.Sprintf("%s to %s", p.Start.Format("2006-01-02 15:04"), p.End.Format("2006-01-02 15:04"))
}

// Digest is the journal content for one period.
type Digest struct {
	Period     Period
	Characters []*db.CharacterSummary
	Failures   []*db.Action
}

// Empty reports whether nothing happened in the period.
func (d *Digest) Empty() bool {
	return len(d.Characters) == 0
}

// Markdown renders the digest body as markdown.
func (d *Digest) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity from %s (UTC).\n\n", d.Period)

	if d.Empty() {
		b.WriteString("No actions were executed.\n")
		return b.String()
	}

	b.WriteString("| Character | Actions | Failures | Cooldown | Last action |\n")
	b.WriteString("|---|---:|---:|---:|---|\n")
	for _, c := range d.Characters {
		fmt.Fprintf(&b, "| %s | %d | %d | %s | %s at %s |\n",
			c.Character, c.Actions, c.Failures,
			time.Duration(c.TotalCooldown)*time.Second,
			c.LastAction, c.LastAt.UTC().Format("15:04"))
	}

	if len(d.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, a := range d.Failures {
			fmt.Fprintf(&b, "- **%s** `%s` at %s: %s\n",
				a.Character, a.Action, a.FinishedAt.UTC().Format("2006-01-02 15:04"), a.Error.String)
		}
	}
	return b.String()
}

// Composer builds digests from the journal
type Composer struct {
	db            *db.DB
	subjectPrefix string
}

// NewComposer creates a new digest composer
func NewComposer(database *db.DB, subjectPrefix string) *Composer {
	return &Composer{
		db:            database,
		subjectPrefix: subjectPrefix,
	}
}

// Compose collects the journal entries of period
func (c *Composer) Compose(period Period) (*Digest, error) {
	summaries, err := c.db.SummarizeActions(period.Start, period.End)
	if err != nil {
		return nil, err
	}

	d := &Digest{Period: period, Characters: summaries}
	if d.Empty() {
		return d, nil
	}

	actions, err := c.db.ListActionsSince(period.Start)
	if err != nil {
		return nil, err
	}
	for _, a := range actions {
		if !a.Failed() || !a.FinishedAt.Before(period.End) {
			continue
		}
		d.Failures = append(d.Failures, a)
	}
	// Keep the most recent failures
	if len(d.Failures) > MaxFailures {
		d.Failures = d.Failures[len(d.Failures)-MaxFailures:]
	}
	return d, nil
}

// Subject generates the email subject line
func (c *Composer) Subject(d *Digest) string {
	subject := "Activity digest " + d.Period.Start.Format("2006-01-02")
	if c.subjectPrefix == "" {
		return subject
	}
	return c.subjectPrefix + " " + subject
}

// Email renders d as an email for recipient
func (c *Composer) Email(d *Digest, recipient string) (*email.Email, error) {
	markdown := d.Markdown()
	body, err := MarkdownToHTML(markdown)
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	data := &pageData{Subject: c.Subject(d), Body: body}
	htmlContent, err := renderHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	return &email.Email{
		To:          recipient,
		Subject:     data.Subject,
		HTMLContent: htmlContent,
		TextContent: markdown,
	}, nil
}
