package queue

import "github.com/sitewatch/auditlog/internal/obs"

// Publisher is the minimal interface the ingest handlers need.
type Publisher interface {
	Publish(topic string, body []byte) error
}

type observedPublisher struct {
	inner Publisher
	stats *obs.Stats
}

// ObservePublisher wraps a publisher with publish counters.
func ObservePublisher(p Publisher, stats *obs.Stats) Publisher {
	if p == nil || stats == nil {
		return p
	}
	if _, ok := p.(*observedPublisher); ok {
		return p
	}
	return &observedPublisher{inner: p, stats: stats}
}

func (p *observedPublisher) Publish(topic string, body []byte) error {
	err := p.inner.Publish(topic, body)
	p.stats.ObservePublish(err)
	return err
}
