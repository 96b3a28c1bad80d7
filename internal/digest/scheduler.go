package digest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sitewatch/auditlog/internal/catalog"
	"github.com/sitewatch/auditlog/internal/logfile"
	"github.com/sitewatch/auditlog/internal/model"
	"github.com/sitewatch/auditlog/internal/obs"
	"github.com/sitewatch/auditlog/internal/store"
	"gorm.io/gorm"
)

// Scheduler owns the periodic digest runs and the 404 log pruning. Reports
// are queued as delivery rows; the notify worker drains them. Overlap
// protection is the cron library's concern, not re-checked here.
type Scheduler struct {
	DB       *gorm.DB
	Settings *store.Settings
	Compiler *Compiler
	Log      *logfile.Writer
	Stats    *obs.Stats
	SiteID   int
	Now      func() time.Time

	DailySpec  string
	WeeklySpec string
	PruneSpec  string

	cron *cron.Cron
}

func NewScheduler(db *gorm.DB, settings *store.Settings, compiler *Compiler, lw *logfile.Writer, stats *obs.Stats, siteID int) *Scheduler {
	return &Scheduler{
		DB:         db,
		Settings:   settings,
		Compiler:   compiler,
		Log:        lw,
		Stats:      stats,
		SiteID:     siteID,
		DailySpec:  "0 6 * * *",
		WeeklySpec: "0 6 * * 1",
		PruneSpec:  "30 3 * * *",
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cron != nil {
		return fmt.Errorf("digest: scheduler already started")
	}
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	jobs := []struct {
		spec string
		fn   func()
	}{
		{s.DailySpec, func() {
			if _, err := s.Run(ctx, false); err != nil {
				log.Printf("digest: daily run: %v", err)
			}
		}},
		{s.WeeklySpec, func() {
			if _, err := s.Run(ctx, true); err != nil {
				log.Printf("digest: weekly run: %v", err)
			}
		}},
		{s.PruneSpec, func() {
			prefix := fmt.Sprintf("%d_", catalog.User404)
			if err := s.Log.Prune(prefix); err != nil {
				log.Printf("digest: prune 404 logs: %v", err)
			}
		}},
	}
	for _, j := range jobs {
		if _, err := c.AddFunc(j.spec, j.fn); err != nil {
			return fmt.Errorf("digest: add cron job %q: %w", j.spec, err)
		}
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

// Run compiles the digest for the last full day (or week) and queues one
// delivery per configured channel target. The returned count is the number of
// deliveries queued; zero with a nil error means the empty digest was
// suppressed or no targets are configured.
func (s *Scheduler) Run(ctx context.Context, weekly bool) (int, error) {
	report, send, err := s.build(ctx, weekly)
	if err != nil {
		return 0, err
	}
	s.Stats.ObserveDigestRun(!send)
	if !send {
		return 0, nil
	}
	return s.queue(ctx, report)
}

// SendNow builds a digest for the current day so far and queues it
// immediately, for the test-send endpoint. The returned string is the
// user-facing outcome message.
func (s *Scheduler) SendNow(ctx context.Context) (string, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	report, send, err := s.compileWindow(ctx, start, now, false)
	if err != nil {
		return "", err
	}
	s.Stats.ObserveDigestRun(!send)
	if !send {
		return "There are no events for today and empty reports are disabled.", nil
	}
	n, err := s.queue(ctx, report)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "No report recipients are configured.", nil
	}
	return fmt.Sprintf("Report queued for %d recipients.", n), nil
}

func (s *Scheduler) build(ctx context.Context, weekly bool) (Report, bool, error) {
	now := s.now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := 1
	if weekly {
		days = 7
	}
	start := end.AddDate(0, 0, -days)
	return s.compileWindow(ctx, start, end, weekly)
}

func (s *Scheduler) compileWindow(ctx context.Context, start, end time.Time, weekly bool) (Report, bool, error) {
	events, err := store.QueryWindow(ctx, s.DB, s.SiteID, start, end, s.Compiler.AllowedIDs())
	if err != nil {
		return Report{}, false, fmt.Errorf("digest: query window: %w", err)
	}
	return s.Compiler.Generate(ctx, events, start, end, weekly)
}

func (s *Scheduler) queue(ctx context.Context, report Report) (int, error) {
	type target struct {
		channel string
		addr    string
	}
	var targets []target
	for _, to := range s.Settings.List(ctx, store.SettingDigestRecipients) {
		targets = append(targets, target{store.ChannelEmail, to})
	}
	for _, url := range s.Settings.List(ctx, store.SettingSlackWebhooks) {
		targets = append(targets, target{store.ChannelSlack, url})
	}
	for _, num := range s.Settings.List(ctx, store.SettingSMSNumbers) {
		targets = append(targets, target{store.ChannelSMS, num})
	}

	queued := 0
	for _, tg := range targets {
		_, err := store.EnqueueDelivery(ctx, s.DB, &model.Delivery{
			SiteID:      s.SiteID,
			ChannelType: tg.channel,
			Target:      tg.addr,
			Subject:     report.Subject,
			Body:        report.Body,
		})
		if err != nil {
			return queued, fmt.Errorf("digest: enqueue %s delivery: %w", tg.channel, err)
		}
		queued++
	}
	return queued, nil
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
