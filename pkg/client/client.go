// Package client is the sensor-side SDK. Site hooks queue SQL statements,
// 404 page views and pre-classified triggers here; the client batches them
// to the ingest gateway in the background.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sdkName    = "auditlog-go"
	sdkVersion = "0.1.0"
)

type Options struct {
	BaseURL string

	FlushInterval time.Duration
	MaxBatchSize  int
	MaxQueueSize  int
	Timeout       time.Duration

	Gzip bool

	HTTPClient *http.Client

	Now func() time.Time
}

type Client struct {
	baseURL string

	flushInterval time.Duration
	maxBatchSize  int
	maxQueueSize  int
	timeout       time.Duration

	gzip bool

	httpClient *http.Client
	now        func() time.Time

	mu sync.Mutex

	sqlQueue     []SQLStatement
	requestQueue []NotFoundRequest
	triggerQueue []Trigger

	backoff time.Duration

	flushMu sync.Mutex

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

func New(options Options) (*Client, error) {
	baseURL := strings.TrimSpace(options.BaseURL)
	if baseURL == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	flushInterval := options.FlushInterval
	if flushInterval == 0 {
		flushInterval = 2 * time.Second
	}

	maxBatchSize := options.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = 50
	}

	maxQueueSize := options.MaxQueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	nowFn := options.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL: baseURL,

		flushInterval: flushInterval,
		maxBatchSize:  maxBatchSize,
		maxQueueSize:  maxQueueSize,
		timeout:       timeout,
		gzip:          options.Gzip,

		httpClient: httpClient,
		now:        nowFn,

		done: make(chan struct{}),
	}

	if c.flushInterval > 0 {
		c.ticker = time.NewTicker(c.flushInterval)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				select {
				case <-c.ticker.C:
					_ = c.Flush(context.Background())
				case <-c.done:
					return
				}
			}
		}()
	}

	return c, nil
}

// RecordSQL queues one schema-changing statement for classification.
func (c *Client) RecordSQL(statement string, scriptPath string) {
	stmt := strings.TrimSpace(statement)
	if stmt == "" {
		return
	}
	ts := c.now().UTC()
	c.enqueueSQL(SQLStatement{
		Statement:  stmt,
		ScriptPath: strings.TrimSpace(scriptPath),
		Timestamp:  &ts,
	})
}

// RecordNotFound queues one 404 page view.
func (c *Client) RecordNotFound(req NotFoundRequest) {
	if strings.TrimSpace(req.URL) == "" {
		return
	}
	if req.Timestamp == nil {
		ts := c.now().UTC()
		req.Timestamp = &ts
	}
	c.enqueueRequest(req)
}

// Trigger queues a pre-classified alert by id.
func (c *Client) Trigger(alertID int, meta map[string]any) {
	if alertID <= 0 {
		return
	}
	ts := c.now().UTC()
	c.enqueueTrigger(Trigger{AlertID: alertID, Meta: meta, Timestamp: &ts})
}

func (c *Client) enqueueSQL(payload SQLStatement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sqlQueue = append(c.sqlQueue, payload)
	if len(c.sqlQueue) > c.maxQueueSize {
		c.sqlQueue = append([]SQLStatement(nil), c.sqlQueue[len(c.sqlQueue)-c.maxQueueSize:]...)
	}
}

func (c *Client) enqueueRequest(payload NotFoundRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestQueue = append(c.requestQueue, payload)
	if len(c.requestQueue) > c.maxQueueSize {
		c.requestQueue = append([]NotFoundRequest(nil), c.requestQueue[len(c.requestQueue)-c.maxQueueSize:]...)
	}
}

func (c *Client) enqueueTrigger(payload Trigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggerQueue = append(c.triggerQueue, payload)
	if len(c.triggerQueue) > c.maxQueueSize {
		c.triggerQueue = append([]Trigger(nil), c.triggerQueue[len(c.triggerQueue)-c.maxQueueSize:]...)
	}
}

func (c *Client) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	for {
		if err := c.waitBackoff(ctx); err != nil {
			return err
		}

		sentAny := false

		if ok, err := c.flushSQLOnce(ctx); err != nil {
			return err
		} else if ok {
			sentAny = true
		}

		if ok, err := c.flushRequestsOnce(ctx); err != nil {
			return err
		} else if ok {
			sentAny = true
		}

		if ok, err := c.flushTriggersOnce(ctx); err != nil {
			return err
		} else if ok {
			sentAny = true
		}

		if sentAny {
			c.mu.Lock()
			c.backoff = 0
			c.mu.Unlock()
			continue
		}
		return nil
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	return c.Flush(ctx)
}

func (c *Client) waitBackoff(ctx context.Context) error {
	c.mu.Lock()
	d := c.backoff
	c.mu.Unlock()
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) flushSQLOnce(ctx context.Context) (bool, error) {
	batch := dequeue(&c.mu, &c.sqlQueue, c.maxBatchSize)
	if len(batch) == 0 {
		return false, nil
	}
	if ok, err := c.postJSON(ctx, "/ingest/sql", batch); err != nil || !ok {
		requeueFront(&c.mu, &c.sqlQueue, batch, c.maxQueueSize)
		c.bumpBackoff()
		if err != nil {
			return false, err
		}
		return false, errors.New("auditlog: failed to post sql batch")
	}
	return true, nil
}

func (c *Client) flushRequestsOnce(ctx context.Context) (bool, error) {
	batch := dequeue(&c.mu, &c.requestQueue, c.maxBatchSize)
	if len(batch) == 0 {
		return false, nil
	}
	if ok, err := c.postJSON(ctx, "/ingest/404", batch); err != nil || !ok {
		requeueFront(&c.mu, &c.requestQueue, batch, c.maxQueueSize)
		c.bumpBackoff()
		if err != nil {
			return false, err
		}
		return false, errors.New("auditlog: failed to post 404 batch")
	}
	return true, nil
}

func (c *Client) flushTriggersOnce(ctx context.Context) (bool, error) {
	batch := dequeue(&c.mu, &c.triggerQueue, c.maxBatchSize)
	if len(batch) == 0 {
		return false, nil
	}
	if ok, err := c.postJSON(ctx, "/ingest/trigger", batch); err != nil || !ok {
		requeueFront(&c.mu, &c.triggerQueue, batch, c.maxQueueSize)
		c.bumpBackoff()
		if err != nil {
			return false, err
		}
		return false, errors.New("auditlog: failed to post trigger batch")
	}
	return true, nil
}

func dequeue[T any](mu *sync.Mutex, queue *[]T, maxBatch int) []T {
	mu.Lock()
	defer mu.Unlock()
	if len(*queue) == 0 {
		return nil
	}
	n := maxBatch
	if n > len(*queue) {
		n = len(*queue)
	}
	batch := append([]T(nil), (*queue)[:n]...)
	*queue = (*queue)[n:]
	return batch
}

func requeueFront[T any](mu *sync.Mutex, queue *[]T, batch []T, maxQueue int) {
	if len(batch) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	*queue = append(append([]T(nil), batch...), *queue...)
	if len(*queue) > maxQueue {
		*queue = append([]T(nil), (*queue)[len(*queue)-maxQueue:]...)
	}
}

func (c *Client) bumpBackoff() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backoff <= 0 {
		c.backoff = 500 * time.Millisecond
		return
	}
	c.backoff *= 2
	if c.backoff > 30*time.Second {
		c.backoff = 30 * time.Second
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}

	var reqBody io.Reader = bytes.NewReader(body)
	var contentEncoding string
	if c.gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			_ = zw.Close()
			return false, fmt.Errorf("gzip write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return false, fmt.Errorf("gzip close: %w", err)
		}
		reqBody = &buf
		contentEncoding = "gzip"
	}

	url := c.baseURL + path

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, reqBody)
	if err != nil {
		return false, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", sdkName+"/"+sdkVersion)
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))

	return res.StatusCode >= 200 && res.StatusCode < 300, nil
}
