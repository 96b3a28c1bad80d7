package ingest

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type capturePublisher struct {
	topics   []string
	messages []NSQMessage
	err      error
}

func (p *capturePublisher) Publish(topic string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	var msg NSQMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func postJSON(t *testing.T, handler gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	c.Writer.WriteHeaderNow()
	return w
}

func TestSQLHandler(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	w := postJSON(t, SQLHandler(pub, 1),
		`[{"statement":"CREATE TABLE wp_x (id INT)","script_path":"/wp-admin/plugins.php"},{"statement":"DROP TABLE wp_x"}]`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if len(pub.messages) != 2 || pub.topics[0] != TopicEvents {
		t.Fatalf("published %d messages to %v", len(pub.messages), pub.topics)
	}
	if pub.messages[0].Type != TypeSQL || pub.messages[0].SiteID != 1 {
		t.Fatalf("message = %+v", pub.messages[0])
	}
	if pub.messages[0].IngestID == "" || pub.messages[0].IngestID == pub.messages[1].IngestID {
		t.Fatalf("expected distinct ingest ids, got %q and %q", pub.messages[0].IngestID, pub.messages[1].IngestID)
	}
	var sql SQLPayload
	if err := json.Unmarshal(pub.messages[0].Payload, &sql); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if sql.ScriptPath != "/wp-admin/plugins.php" || sql.Timestamp == nil {
		t.Fatalf("payload = %+v", sql)
	}

	if w := postJSON(t, SQLHandler(pub, 1), `{"statement":"  "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank statement status = %d", w.Code)
	}
}

func TestNotFoundHandler(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	w := postJSON(t, NotFoundHandler(pub, 1),
		`{"url":"/missing","username":"alice","user_id":7,"client_ip":"203.0.113.9"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if len(pub.messages) != 1 || pub.topics[0] != TopicRequests {
		t.Fatalf("published %d messages to %v", len(pub.messages), pub.topics)
	}
	var req RequestPayload
	if err := json.Unmarshal(pub.messages[0].Payload, &req); err != nil {
		t.Fatalf("payload: %v", err)
	}
	// The sensor-reported IP wins over the gateway peer address.
	if req.ClientIP != "203.0.113.9" {
		t.Fatalf("client ip = %q", req.ClientIP)
	}

	if w := postJSON(t, NotFoundHandler(pub, 1), `{"username":"alice"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing url status = %d", w.Code)
	}
}

func TestTriggerHandler(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	w := postJSON(t, TriggerHandler(pub, 1),
		`{"alert_id":1000,"meta":{"Username":"alice","ClientIP":"10.0.0.1"}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	var tp TriggerPayload
	if err := json.Unmarshal(pub.messages[0].Payload, &tp); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if tp.AlertID != 1000 || tp.Meta["Username"] != "alice" {
		t.Fatalf("payload = %+v", tp)
	}

	if w := postJSON(t, TriggerHandler(pub, 1), `{"alert_id":0}`); w.Code != http.StatusBadRequest {
		t.Fatalf("zero id status = %d", w.Code)
	}
}

func TestDecodeOneOrMany(t *testing.T) {
	t.Parallel()

	if _, err := decodeOneOrMany[SQLPayload]([]byte(" ")); err == nil {
		t.Fatalf("expected error for empty body")
	}
	if _, err := decodeOneOrMany[SQLPayload]([]byte("[]")); err == nil {
		t.Fatalf("expected error for empty array")
	}

	items, err := decodeOneOrMany[SQLPayload]([]byte(`[{"statement":"a"},{"statement":"b"}]`))
	if err != nil {
		t.Fatalf("decodeOneOrMany(array): %v", err)
	}
	if len(items) != 2 || items[0].Statement != "a" || items[1].Statement != "b" {
		t.Fatalf("unexpected items: %#v", items)
	}

	if _, err := decodeOneOrMany[SQLPayload]([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestReadBody_GzipAndPlain(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)

	makeCtx := func(body []byte, gzipOn bool) *gin.Context {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		if !gzipOn {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			c.Request = req
			return c
		}
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			t.Fatalf("gzip write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("gzip close: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Encoding", "gzip")
		c.Request = req
		return c
	}

	plain := []byte(`{"k":"v"}`)
	got, err := readBody(makeCtx(plain, false), 1024)
	if err != nil {
		t.Fatalf("readBody(plain): %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("expected %q, got %q", string(plain), string(got))
	}

	got2, err := readBody(makeCtx(plain, true), 1024)
	if err != nil {
		t.Fatalf("readBody(gzip): %v", err)
	}
	if !bytes.Equal(bytes.TrimSpace(got2), plain) {
		t.Fatalf("expected %q, got %q", string(plain), string(got2))
	}
}
