package obs

import (
	"sync/atomic"
	"time"
)

// Stats are best-effort in-process counters surfaced on /api/status. All
// methods accept a nil receiver so instrumentation never needs guarding.
type Stats struct {
	start time.Time

	httpRequests  atomic.Int64
	httpErrors    atomic.Int64
	httpLatencyUS atomic.Int64
	httpLatencyN  atomic.Int64

	publishTotal  atomic.Int64
	publishErrors atomic.Int64

	consumerMessages atomic.Int64
	consumerErrors   atomic.Int64

	dispatched      atomic.Int64
	suppressed      atomic.Int64
	throttleSkipped atomic.Int64

	digestRuns  atomic.Int64
	digestEmpty atomic.Int64

	deliveriesSent   atomic.Int64
	deliveriesFailed atomic.Int64
}

func New() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) ObserveHTTP(status int, dur time.Duration) {
	if s == nil {
		return
	}
	s.httpRequests.Add(1)
	if status >= 500 {
		s.httpErrors.Add(1)
	}
	s.httpLatencyUS.Add(dur.Microseconds())
	s.httpLatencyN.Add(1)
}

func (s *Stats) ObservePublish(err error) {
	if s == nil {
		return
	}
	s.publishTotal.Add(1)
	if err != nil {
		s.publishErrors.Add(1)
	}
}

func (s *Stats) ObserveConsumerMessage(err error) {
	if s == nil {
		return
	}
	s.consumerMessages.Add(1)
	if err != nil {
		s.consumerErrors.Add(1)
	}
}

func (s *Stats) ObserveDispatched() {
	if s == nil {
		return
	}
	s.dispatched.Add(1)
}

func (s *Stats) ObserveSuppressed() {
	if s == nil {
		return
	}
	s.suppressed.Add(1)
}

func (s *Stats) ObserveThrottleSkip() {
	if s == nil {
		return
	}
	s.throttleSkipped.Add(1)
}

func (s *Stats) ObserveDigestRun(empty bool) {
	if s == nil {
		return
	}
	s.digestRuns.Add(1)
	if empty {
		s.digestEmpty.Add(1)
	}
}

func (s *Stats) ObserveDelivery(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.deliveriesFailed.Add(1)
		return
	}
	s.deliveriesSent.Add(1)
}

type Snapshot struct {
	UptimeSec        int64 `json:"uptime_sec"`
	HTTPRequests     int64 `json:"http_requests"`
	HTTPErrors       int64 `json:"http_errors"`
	HTTPAvgLatencyUS int64 `json:"http_avg_latency_us"`
	PublishTotal     int64 `json:"publish_total"`
	PublishErrors    int64 `json:"publish_errors"`
	ConsumerMessages int64 `json:"consumer_messages"`
	ConsumerErrors   int64 `json:"consumer_errors"`
	Dispatched       int64 `json:"dispatched"`
	Suppressed       int64 `json:"suppressed"`
	ThrottleSkipped  int64 `json:"throttle_skipped"`
	DigestRuns       int64 `json:"digest_runs"`
	DigestEmpty      int64 `json:"digest_empty"`
	DeliveriesSent   int64 `json:"deliveries_sent"`
	DeliveriesFailed int64 `json:"deliveries_failed"`
}

func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	out := Snapshot{
		UptimeSec:        int64(time.Since(s.start).Seconds()),
		HTTPRequests:     s.httpRequests.Load(),
		HTTPErrors:       s.httpErrors.Load(),
		PublishTotal:     s.publishTotal.Load(),
		PublishErrors:    s.publishErrors.Load(),
		ConsumerMessages: s.consumerMessages.Load(),
		ConsumerErrors:   s.consumerErrors.Load(),
		Dispatched:       s.dispatched.Load(),
		Suppressed:       s.suppressed.Load(),
		ThrottleSkipped:  s.throttleSkipped.Load(),
		DigestRuns:       s.digestRuns.Load(),
		DigestEmpty:      s.digestEmpty.Load(),
		DeliveriesSent:   s.deliveriesSent.Load(),
		DeliveriesFailed: s.deliveriesFailed.Load(),
	}
	if n := s.httpLatencyN.Load(); n > 0 {
		out.HTTPAvgLatencyUS = s.httpLatencyUS.Load() / n
	}
	return out
}
