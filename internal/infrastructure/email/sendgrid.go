package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const sendEndpoint = "/v3/mail/send"

// Sender delivers the digest as an HTML e-mail through the SendGrid v3 API.
type Sender struct {
	cfg    config.EmailConfig
	loc    *time.Location
	client *rest.Client
	logger *slog.Logger
}

var _ ports.Notifier = (*Sender)(nil)

// NewSender builds the e-mail notifier. A nil client falls back to a 15 second timeout client.
func NewSender(cfg config.EmailConfig, loc *time.Location, client *http.Client, logger *slog.Logger) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "https://api.sendgrid.com"
	}
	return &Sender{
		cfg:    cfg,
		loc:    loc,
		client: &rest.Client{HTTPClient: client},
		logger: logger.With("component", "email"),
	}
}

// Name identifies the notifier in run reports.
func (s *Sender) Name() string { return "email" }

// Deliver renders the digest and sends one message to every configured recipient.
func (s *Sender) Deliver(ctx context.Context, d domain.Digest) error {
	if !s.cfg.Enabled() {
		return &domain.ConfigurationError{Reason: "email needs an api key, a sender and recipients"}
	}

	body, err := Render(d, s.loc)
	if err != nil {
		return err
	}
	subject := Subject(d.Date, s.loc)

	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail(s.cfg.FromName, s.cfg.From))
	msg.Subject = subject

	p := mail.NewPersonalization()
	for _, r := range s.cfg.Recipients {
		p.AddTos(mail.NewEmail("", r))
	}
	msg.AddPersonalizations(p)
	msg.AddContent(mail.NewContent("text/html", body))

	req := sendgrid.GetRequest(s.cfg.APIKey, sendEndpoint, s.cfg.Host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(msg)

	resp, err := s.client.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid error %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}

	s.logger.Info("digest emailed", "run_id", d.RunID, "recipients", len(s.cfg.Recipients), "status", resp.StatusCode, "subject", subject)
	return nil
}
