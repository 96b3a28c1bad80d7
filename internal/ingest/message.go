package ingest

import (
	"encoding/json"
	"time"
)

// NSQ topics the sensor traffic is fanned out on.
const (
	TopicEvents   = "events"
	TopicRequests = "requests"
)

// Message types inside TopicEvents.
const (
	TypeSQL     = "sql"
	TypeTrigger = "trigger"
	TypeRequest = "request"
)

// NSQMessage is the wire envelope between the ingest gateway and the
// consumers. Payload holds one of the typed payloads below.
type NSQMessage struct {
	IngestID string          `json:"ingest_id"`
	Type     string          `json:"type"`
	SiteID   int             `json:"site_id"`
	Received time.Time       `json:"received"`
	Payload  json.RawMessage `json:"payload"`
	Meta     *MessageMeta    `json:"meta,omitempty"`
}

type MessageMeta struct {
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// SQLPayload is one schema-changing statement captured by the database
// sensor, with the executing script for actor attribution.
type SQLPayload struct {
	Statement  string     `json:"statement"`
	ScriptPath string     `json:"script_path,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// RequestPayload is one 404 page view.
type RequestPayload struct {
	URL       string     `json:"url"`
	Username  string     `json:"username,omitempty"`
	UserID    int64      `json:"user_id,omitempty"`
	Referrer  string     `json:"referrer,omitempty"`
	ClientIP  string     `json:"client_ip,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// TriggerPayload is a pre-classified alert from a sensor that already knows
// its alert id (login hooks, post hooks and so on).
type TriggerPayload struct {
	AlertID    int            `json:"alert_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	Suppressed bool           `json:"suppressed,omitempty"`
	Timestamp  *time.Time     `json:"timestamp,omitempty"`
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
