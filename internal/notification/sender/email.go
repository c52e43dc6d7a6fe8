package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"givebridge/internal/notification/metrics"
	"givebridge/internal/notification/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/email"
	"givebridge/pkg/platform/circuit"
	"givebridge/pkg/platform/sentinel"
)

// Contact is where a user receives mail.
type Contact struct {
	Email string
	Name  string
}

// Directory resolves a recipient id to a mail contact. Returns
// sentinel.ErrNotFound when the user has no address on record.
type Directory interface {
	Lookup(ctx context.Context, userID id.UserID) (Contact, error)
}

// EmailConfig points the sender at a JSON mail API.
type EmailConfig struct {
	APIURL  string
	APIKey  string
	From    string
	Timeout time.Duration
}

// EmailSender posts notifications to a transactional mail API. Calls are
// guarded by a circuit breaker; while it is open sends fail fast with
// sentinel.ErrUnavailable so the dispatcher schedules a retry.
type EmailSender struct {
	cfg       EmailConfig
	client    *http.Client
	directory Directory
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// EmailOption configures an EmailSender.
type EmailOption func(*EmailSender)

func WithHTTPClient(c *http.Client) EmailOption {
	return func(s *EmailSender) { s.client = c }
}

func WithBreaker(b *circuit.Breaker) EmailOption {
	return func(s *EmailSender) { s.breaker = b }
}

func WithEmailLogger(l *slog.Logger) EmailOption {
	return func(s *EmailSender) { s.logger = l }
}

func WithEmailMetrics(m *metrics.Metrics) EmailOption {
	return func(s *EmailSender) { s.metrics = m }
}

func NewEmailSender(cfg EmailConfig, directory Directory, opts ...EmailOption) *EmailSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &EmailSender{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		directory: directory,
		breaker:   circuit.New("email", circuit.WithFailureThreshold(5), circuit.WithCooldown(time.Minute)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type emailRequest struct {
	From     emailAddress  `json:"from"`
	To       []toRecipient `json:"to"`
	Subject  string        `json:"subject"`
	HTMLBody string        `json:"htmlbody"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type toRecipient struct {
	Email emailWithName `json:"email_address"`
}

type emailWithName struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

func (s *EmailSender) Send(ctx context.Context, event models.Event) error {
	contact, err := s.directory.Lookup(ctx, event.RecipientID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.InfoContext(ctx, "no mail contact for recipient, skipping",
			"recipient_id", event.RecipientID.String(),
			"notification_id", event.ID.String(),
		)
		s.metrics.Record(metrics.OutcomeSkipped, 1)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup recipient: %w", err)
	}
	if contact.Name == "" {
		contact.Name = email.DisplayName(contact.Email)
	}

	if !s.breaker.Allow() {
		return fmt.Errorf("mail api circuit open: %w", sentinel.ErrUnavailable)
	}

	err = s.post(ctx, contact, event)
	if err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "mail api circuit opened", "breaker", s.breaker.Name())
			s.metrics.SetBreakerOpen(s.breaker.Name(), true)
		}
		return err
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "mail api circuit closed", "breaker", s.breaker.Name())
		s.metrics.SetBreakerOpen(s.breaker.Name(), false)
	}
	return nil
}

func (s *EmailSender) post(ctx context.Context, contact Contact, event models.Event) error {
	subject, body, err := render(contact, event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(emailRequest{
		From:     emailAddress{Address: s.cfg.From},
		To:       []toRecipient{{Email: emailWithName{Address: contact.Email, Name: contact.Name}}},
		Subject:  subject,
		HTMLBody: body,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("mail api returned %s", resp.Status)
	}
	return nil
}

var subjects = map[models.EventType]string{
	models.EventDonationAccepted:  "Your donation was accepted",
	models.EventDonationCollected: "Donation collected",
	models.EventDonationCompleted: "Donation completed",
	models.EventDonationCancelled: "Donation cancelled",
}

var bodyTemplate = template.Must(template.New("body").Parse(
	`<p>Hello {{.Name}},</p>` +
		`<p>The donation <strong>{{.Title}}</strong> moved from {{.From}} to {{.To}}.</p>` +
		`{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}` +
		`<p>GiveBridge</p>`))

func render(contact Contact, event models.Event) (string, string, error) {
	subject, ok := subjects[event.Type]
	if !ok {
		subject = "Donation update"
	}
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, map[string]string{
		"Name":   contact.Name,
		"Title":  event.DonationTitle,
		"From":   event.FromStatus,
		"To":     event.ToStatus,
		"Reason": event.Reason,
	})
	if err != nil {
		return "", "", fmt.Errorf("render email: %w", err)
	}
	return subject, buf.String(), nil
}
