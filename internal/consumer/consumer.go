package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/sitewatch/auditlog/internal/classifier"
	"github.com/sitewatch/auditlog/internal/config"
	"github.com/sitewatch/auditlog/internal/dispatch"
	"github.com/sitewatch/auditlog/internal/ingest"
	"github.com/sitewatch/auditlog/internal/obs"
	"github.com/sitewatch/auditlog/internal/store"
)

// Deps bundles what the message handlers need. The SQL classifier is built
// per message because its script-basename memo is request scoped.
type Deps struct {
	Settings   *store.Settings
	Schema     classifier.SchemaInspector
	Dispatcher *dispatch.Dispatcher
	Tracker    *classifier.NotFoundTracker
	Stats      *obs.Stats
	Prefix     string
}

type NSQConsumer struct {
	consumer *nsq.Consumer
}

// NewEventConsumer consumes the "events" topic: schema-changing SQL and
// pre-classified triggers.
func NewEventConsumer(ctx context.Context, cfg config.Config, deps Deps) (*NSQConsumer, error) {
	channel := cfg.NSQEventChannel
	if channel == "" {
		channel = "event-consumer"
	}
	return newConsumer(ctx, cfg, ingest.TopicEvents, channel, handleEventMessage(deps))
}

// NewRequestConsumer consumes the "requests" topic: 404 page views.
func NewRequestConsumer(ctx context.Context, cfg config.Config, deps Deps) (*NSQConsumer, error) {
	channel := cfg.NSQRequestChannel
	if channel == "" {
		channel = "request-consumer"
	}
	return newConsumer(ctx, cfg, ingest.TopicRequests, channel, handleRequestMessage(deps))
}

func (c *NSQConsumer) Stop() {
	if c == nil || c.consumer == nil {
		return
	}
	c.consumer.Stop()
	<-c.consumer.StopChan
}

func newConsumer(ctx context.Context, cfg config.Config, topic, channel string, handler nsq.HandlerFunc) (*NSQConsumer, error) {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = 200
	nsqCfg.MsgTimeout = 30 * time.Second
	cons, err := nsq.NewConsumer(topic, channel, nsqCfg)
	if err != nil {
		return nil, err
	}
	cons.SetLogger(log.New(log.Writer(), "nsq ", log.LstdFlags), nsq.LogLevelInfo)
	cons.AddHandler(handler)

	if err := connectToNSQDWithRetry(ctx, cons, cfg.NSQDAddress, topic, channel); err != nil {
		cons.Stop()
		return nil, err
	}
	return &NSQConsumer{consumer: cons}, nil
}

func connectToNSQDWithRetry(ctx context.Context, cons *nsq.Consumer, addr, topic, channel string) error {
	const (
		totalWait = 2 * time.Minute
		maxDelay  = 5 * time.Second
	)
	deadline := time.Now().Add(totalWait)
	delay := 300 * time.Millisecond
	var lastErr error

	for {
		err := cons.ConnectToNSQD(addr)
		if err == nil {
			return nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			return fmt.Errorf("connect nsqd addr=%s topic=%s channel=%s: %w", addr, topic, channel, lastErr)
		}
		log.Printf("nsq connect failed (addr=%s topic=%s channel=%s): %v; retrying in %s", addr, topic, channel, lastErr, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func handleEventMessage(deps Deps) nsq.HandlerFunc {
	return nsq.HandlerFunc(func(m *nsq.Message) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var msg ingest.NSQMessage
		if err := json.Unmarshal(m.Body, &msg); err != nil {
			// Malformed messages are dropped, not requeued.
			deps.Stats.ObserveConsumerMessage(nil)
			return nil
		}

		switch msg.Type {
		case ingest.TypeSQL:
			var sp ingest.SQLPayload
			if err := json.Unmarshal(msg.Payload, &sp); err != nil {
				deps.Stats.ObserveConsumerMessage(nil)
				return nil
			}
			c := classifier.NewSQLClassifier(deps.Prefix, sp.ScriptPath, deps.Schema, deps.Settings)
			ev, ok, err := c.Classify(ctx, sp.Statement)
			if err != nil {
				log.Printf("consumer: classify %s: %v", msg.IngestID, err)
				deps.Stats.ObserveConsumerMessage(err)
				return err
			}
			if !ok {
				deps.Stats.ObserveConsumerMessage(nil)
				return nil
			}
			_, err = deps.Dispatcher.Trigger(ctx, ev.AlertID, ev.Meta)
			deps.Stats.ObserveConsumerMessage(err)
			return err

		case ingest.TypeTrigger:
			var tp ingest.TriggerPayload
			if err := json.Unmarshal(msg.Payload, &tp); err != nil {
				deps.Stats.ObserveConsumerMessage(nil)
				return nil
			}
			if tp.Suppressed {
				ctx = dispatch.Suppressed(ctx)
			}
			_, err := deps.Dispatcher.Trigger(ctx, tp.AlertID, tp.Meta)
			deps.Stats.ObserveConsumerMessage(err)
			return err

		default:
			deps.Stats.ObserveConsumerMessage(nil)
			return nil
		}
	})
}

func handleRequestMessage(deps Deps) nsq.HandlerFunc {
	return nsq.HandlerFunc(func(m *nsq.Message) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var msg ingest.NSQMessage
		if err := json.Unmarshal(m.Body, &msg); err != nil {
			deps.Stats.ObserveConsumerMessage(nil)
			return nil
		}
		if msg.Type != ingest.TypeRequest {
			deps.Stats.ObserveConsumerMessage(nil)
			return nil
		}
		var rp ingest.RequestPayload
		if err := json.Unmarshal(msg.Payload, &rp); err != nil {
			deps.Stats.ObserveConsumerMessage(nil)
			return nil
		}

		err := deps.Tracker.Track(ctx, classifier.NotFoundRequest{
			Username: rp.Username,
			UserID:   rp.UserID,
			ClientIP: rp.ClientIP,
			URL:      rp.URL,
			Referrer: rp.Referrer,
		})
		if err != nil {
			log.Printf("consumer: track %s: %v", msg.IngestID, err)
		}
		deps.Stats.ObserveConsumerMessage(err)
		return err
	})
}
