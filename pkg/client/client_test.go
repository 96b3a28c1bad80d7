package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func readBody(t *testing.T, r *http.Request) []byte {
	t.Helper()
	defer r.Body.Close()

	var rd io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Fatalf("gzip.NewReader: %v", err)
		}
		defer zr.Close()
		rd = zr
	}

	b, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("io.ReadAll: %v", err)
	}
	return b
}

func TestClient_Flush_SendsBatchesPerEndpoint(t *testing.T) {
	t.Parallel()

	type received struct {
		Path string
		Body []byte
	}

	var (
		mu    sync.Mutex
		calls []received
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, received{Path: r.URL.Path, Body: readBody(t, r)})
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := New(Options{
		BaseURL:       srv.URL,
		Gzip:          true,
		FlushInterval: -1,
		Now:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.RecordSQL("ALTER TABLE wp_posts ADD COLUMN x INT", "wp-content/plugins/acme/acme.php")
	c.RecordNotFound(NotFoundRequest{URL: "/missing", Username: "alice", ClientIP: "203.0.113.1"})
	c.Trigger(1000, map[string]any{"Username": "alice"})

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}

	byPath := map[string][]byte{}
	for _, call := range calls {
		byPath[call.Path] = call.Body
	}
	for _, p := range []string{"/ingest/sql", "/ingest/404", "/ingest/trigger"} {
		if _, ok := byPath[p]; !ok {
			t.Fatalf("missing call to %s", p)
		}
	}

	var stmts []SQLStatement
	if err := json.Unmarshal(byPath["/ingest/sql"], &stmts); err != nil {
		t.Fatalf("unmarshal sql batch: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Statement != "ALTER TABLE wp_posts ADD COLUMN x INT" {
		t.Fatalf("unexpected sql batch: %+v", stmts)
	}
	if stmts[0].Timestamp == nil || !stmts[0].Timestamp.Equal(now) {
		t.Fatalf("expected timestamp %v, got %v", now, stmts[0].Timestamp)
	}

	var reqs []NotFoundRequest
	if err := json.Unmarshal(byPath["/ingest/404"], &reqs); err != nil {
		t.Fatalf("unmarshal 404 batch: %v", err)
	}
	if len(reqs) != 1 || reqs[0].URL != "/missing" || reqs[0].Username != "alice" {
		t.Fatalf("unexpected 404 batch: %+v", reqs)
	}
}

func TestClient_Flush_RequeuesOnServerError(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL, FlushInterval: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.RecordSQL("DROP TABLE wp_oldthing", "")

	if err := c.Flush(context.Background()); err == nil {
		t.Fatalf("expected first flush to fail")
	}

	// Batch went back to the queue; the retry drains it.
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("second Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestClient_DropsBlankInput(t *testing.T) {
	t.Parallel()

	c, err := New(Options{BaseURL: "http://localhost:1", FlushInterval: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.RecordSQL("   ", "")
	c.RecordNotFound(NotFoundRequest{URL: ""})
	c.Trigger(0, nil)

	// Nothing queued, so Flush never dials the unreachable address.
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
