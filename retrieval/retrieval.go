package retrieval

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/a-h/jsonapi"
	"github.com/a-h/ragtutor/metrics"
	"github.com/a-h/ragtutor/models"
)

func New(log *slog.Logger, url string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		url:     url,
		timeout: timeout,
	}
}

// Client queries the external search service for context chunks.
type Client struct {
	log     *slog.Logger
	url     string
	timeout time.Duration
}

type searchRequest struct {
	Query          string `json:"query"`
	K              int    `json:"k"`
	FilterDocument string `json:"filter_document,omitempty"`
}

// Search returns up to k chunks, most relevant first. Failures are logged and
// reported as no context, so callers can always continue without it.
func (c *Client) Search(ctx context.Context, query string, k int, filterDocument string) []models.Chunk {
	if c == nil || c.url == "" {
		return nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, err := jsonapi.Post[searchRequest, json.RawMessage](ctx, c.url, searchRequest{
		Query:          query,
		K:              k,
		FilterDocument: filterDocument,
	})
	if err != nil {
		metrics.RetrievalDegraded.Inc()
		c.log.Warn("retrieval failed, continuing without context", slog.String("url", c.url), slog.Any("error", err))
		return nil
	}
	chunks, ok := parse(body)
	if !ok {
		metrics.RetrievalDegraded.Inc()
		c.log.Warn("retrieval response not recognised, continuing without context", slog.String("url", c.url), slog.Int("bytes", len(body)))
		return nil
	}
	if len(chunks) > k && k > 0 {
		chunks = chunks[:k]
	}
	c.log.Debug("retrieved chunks", slog.Int("count", len(chunks)))
	return chunks
}

