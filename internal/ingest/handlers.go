package ingest

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sitewatch/auditlog/internal/queue"
)

// SQLHandler accepts one statement or a batch from the database sensor and
// queues them for classification.
func SQLHandler(publisher queue.Publisher, siteID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c, 5<<20)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		items, err := decodeOneOrMany[SQLPayload](body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()

		for _, item := range items {
			if strings.TrimSpace(item.Statement) == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			if item.Timestamp == nil {
				ts := now
				item.Timestamp = &ts
			}

			payload, _ := json.Marshal(NSQMessage{
				IngestID: uuid.NewString(),
				Type:     TypeSQL,
				SiteID:   siteID,
				Received: now,
				Payload:  mustJSON(item),
				Meta: &MessageMeta{
					ClientIP:  c.ClientIP(),
					UserAgent: c.GetHeader("User-Agent"),
				},
			})
			if err := publisher.Publish(TopicEvents, payload); err != nil {
				c.Status(http.StatusServiceUnavailable)
				return
			}
		}

		c.Status(http.StatusAccepted)
	}
}

// NotFoundHandler accepts 404 page-view contexts from the web sensor.
func NotFoundHandler(publisher queue.Publisher, siteID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c, 5<<20)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		items, err := decodeOneOrMany[RequestPayload](body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()

		for _, item := range items {
			if strings.TrimSpace(item.URL) == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			// The sensor reports the visitor's IP; the gateway's peer
			// address is only a fallback.
			if strings.TrimSpace(item.ClientIP) == "" {
				item.ClientIP = c.ClientIP()
			}
			if item.Timestamp == nil {
				ts := now
				item.Timestamp = &ts
			}

			payload, _ := json.Marshal(NSQMessage{
				IngestID: uuid.NewString(),
				Type:     TypeRequest,
				SiteID:   siteID,
				Received: now,
				Payload:  mustJSON(item),
				Meta: &MessageMeta{
					ClientIP:  c.ClientIP(),
					UserAgent: c.GetHeader("User-Agent"),
				},
			})
			if err := publisher.Publish(TopicRequests, payload); err != nil {
				c.Status(http.StatusServiceUnavailable)
				return
			}
		}

		c.Status(http.StatusAccepted)
	}
}

// TriggerHandler accepts pre-classified alerts.
func TriggerHandler(publisher queue.Publisher, siteID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c, 5<<20)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		items, err := decodeOneOrMany[TriggerPayload](body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()

		for _, item := range items {
			if item.AlertID <= 0 {
				c.Status(http.StatusBadRequest)
				return
			}
			if item.Timestamp == nil {
				ts := now
				item.Timestamp = &ts
			}

			payload, _ := json.Marshal(NSQMessage{
				IngestID: uuid.NewString(),
				Type:     TypeTrigger,
				SiteID:   siteID,
				Received: now,
				Payload:  mustJSON(item),
				Meta: &MessageMeta{
					ClientIP:  c.ClientIP(),
					UserAgent: c.GetHeader("User-Agent"),
				},
			})
			if err := publisher.Publish(TopicEvents, payload); err != nil {
				c.Status(http.StatusServiceUnavailable)
				return
			}
		}

		c.Status(http.StatusAccepted)
	}
}

func decodeOneOrMany[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if body[0] == byte('[') {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, errors.New("empty array")
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

func readBody(c *gin.Context, limit int64) ([]byte, error) {
	defer c.Request.Body.Close()

	raw := io.LimitReader(c.Request.Body, limit)
	enc := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
	if strings.Contains(enc, "gzip") {
		zr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(io.LimitReader(zr, limit))
	}
	return io.ReadAll(raw)
}
