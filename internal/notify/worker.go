package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/sitewatch/auditlog/internal/config"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/obs"
	"github.com/sitewatch/auditlog/internal/store"
	"gorm.io/gorm"
)

// Worker drains the delivery queue. Transport failures are retried with
// exponential backoff; configuration problems (no SMTP host, empty target)
// are permanent and fail the row immediately.
type Worker struct {
	DB         *gorm.DB
	HTTPClient *http.Client
	Stats      *obs.Stats
	Now        func() time.Time
	Config     config.Config
}

func NewWorker(db *gorm.DB, cfg config.Config, stats *obs.Stats) *Worker {
	return &Worker{
		DB:         db,
		HTTPClient: http.DefaultClient,
		Stats:      stats,
		Now:        time.Now,
		Config:     cfg,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.DB == nil {
		return nil
	}
	t := time.NewTicker(2 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_, _ = w.ProcessOnce(ctx, 50)
		}
	}
}

func (w *Worker) ProcessOnce(ctx context.Context, limit int) (int, error) {
	if w == nil || w.DB == nil {
		return 0, nil
	}
	now := w.Now().UTC()

	items, err := store.DueDeliveries(ctx, w.DB, now, limit)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	processed := 0
	for _, d := range items {
		processed++

		err := w.send(ctx, d)
		w.Stats.ObserveDelivery(err)
		if err == nil {
			_ = store.MarkDeliverySent(ctx, w.DB, d.ID)
			continue
		}

		attempts := d.Attempts + 1
		next := now.Add(backoffDelay(attempts))
		terminal := isPermanent(err) || attempts >= 10
		if terminal {
			next = now
		}
		_ = store.MarkDeliveryFailed(ctx, w.DB, d.ID, attempts, next, terminal, err.Error())
	}
	return processed, nil
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := 2 * time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return d
}

func (w *Worker) send(ctx context.Context, d model.Delivery) error {
	switch d.ChannelType {
	case store.ChannelEmail:
		return w.sendEmail(d.Target, d.Subject, d.Body)
	case store.ChannelSlack:
		return w.sendSlack(ctx, d.Target, d.Subject, d.Body)
	case store.ChannelSMS:
		return w.sendSMS(ctx, d.Target, d.Subject, d.Body)
	default:
		return permanent(fmt.Errorf("unknown channel_type=%q", d.ChannelType))
	}
}

func (w *Worker) sendEmail(to string, subject string, body string) error {
	host := strings.TrimSpace(w.Config.SMTPHost)
	if host == "" {
		return permanent(errors.New("SMTP_HOST not configured"))
	}
	port := w.Config.SMTPPort
	if port <= 0 {
		port = 587
	}
	from := strings.TrimSpace(w.Config.SMTPFrom)
	if from == "" {
		return permanent(errors.New("SMTP_FROM not configured"))
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return permanent(errors.New("email to empty"))
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	msg := []byte("To: " + to + "\r\n" +
		"From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n")

	var auth smtp.Auth
	if strings.TrimSpace(w.Config.SMTPUsername) != "" {
		auth = smtp.PlainAuth("", w.Config.SMTPUsername, w.Config.SMTPPassword, host)
	}
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

func (w *Worker) sendSlack(ctx context.Context, webhookURL string, subject string, body string) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return permanent(errors.New("slack webhook url empty"))
	}
	payload, _ := json.Marshal(map[string]any{
		"text": subject + "\n" + body,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := w.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("slack http %d", res.StatusCode)
	}
	return nil
}

// sendSMS posts to a generic provider endpoint. The subject alone is sent;
// digest bodies do not fit an SMS.
func (w *Worker) sendSMS(ctx context.Context, phone string, subject string, _ string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return permanent(errors.New("sms phone empty"))
	}
	providerURL := strings.TrimSpace(w.Config.SMSProviderURL)
	if providerURL == "" {
		return permanent(errors.New("SMS_PROVIDER_URL not configured"))
	}

	payload, _ := json.Marshal(map[string]any{
		"to":      phone,
		"message": subject,
		"sentAt":  w.Now().UTC().Format(time.RFC3339Nano),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, providerURL, bytes.NewReader(payload))
	if err != nil {
		return permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(w.Config.SMSProviderToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := w.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("sms http %d", res.StatusCode)
	}
	return nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var pe permanentError
	return errors.As(err, &pe)
}
