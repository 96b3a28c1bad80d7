package client

import "time"

// Wire shapes accepted by the ingest gateway. Single values or arrays are
// both accepted server side; the client always posts arrays.

type SQLStatement struct {
	Statement  string     `json:"statement"`
	ScriptPath string     `json:"script_path,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type NotFoundRequest struct {
	URL       string     `json:"url"`
	Username  string     `json:"username,omitempty"`
	UserID    int64      `json:"user_id,omitempty"`
	Referrer  string     `json:"referrer,omitempty"`
	ClientIP  string     `json:"client_ip,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type Trigger struct {
	AlertID   int            `json:"alert_id"`
	Meta      map[string]any `json:"meta,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}
