package email

import (
	"context"
	"fmt"
	"io"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Email represents an email to be sent
type Email struct {
	To          string
	Subject     string
	HTMLContent string
	TextContent string
}

// Sender is the interface for sending emails
type Sender interface {
	Send(ctx context.Context, email Email) (string, error)
}

// Client wraps the SendGrid API client
type Client struct {
	apiKey    string
	fromEmail string
	fromName  string
	host      string
}

// Option configures a Client
type Option func(*Client)

// WithHost points the client at another SendGrid compatible host
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// NewClient creates a new SendGrid client
func NewClient(apiKey, fromEmail, fromName string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send sends an email via SendGrid and returns the message ID
func (c *Client) Send(ctx context.Context, email Email) (string, error) {
	from := mail.NewEmail(c.fromName, c.fromEmail)
	to := mail.NewEmail("", email.To)
	message := mail.NewSingleEmail(from, email.Subject, to, email.TextContent, email.HTMLContent)

	response, err := c.sendClient().SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	// SendGrid returns 2xx status codes for success
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}

	// Extract message ID from response headers
	messageID := ""
	if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}

	return messageID, nil
}

func (c *Client) sendClient() *sendgrid.Client {
	if c.host == "" {
		return sendgrid.NewSendClient(c.apiKey)
	}
	request := sendgrid.GetRequest(c.apiKey, "/v3/mail/send", c.host)
	request.Method = "POST"
	return &sendgrid.Client{Request: request}
}

// DryRunClient is a client that doesn't actually send emails
type DryRunClient struct {
	output io.Writer
}

// NewDryRunClient creates a client that prints instead of sending.
// A nil output discards everything.
func NewDryRunClient(output io.Writer) *DryRunClient {
	if output == nil {
		output = io.Discard
	}
	return &DryRunClient{output: output}
}

// Send pretends to send an email (for dry runs)
func (c *DryRunClient) Send(_ context.Context, email Email) (string, error) {
	fmt.Fprintf(c.output, "To: %s\nSubject: %s\n\n%s\n", email.To, email.Subject, email.TextContent)
	return "dry-run-message-id", nil
}
