package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/jsonapi"
	"github.com/a-h/ragtutor/metrics"
	"github.com/a-h/ragtutor/models"
)

var ErrIndexerNotConfigured = errors.New("documents: indexer URL not configured")

func NewIndexer(log *slog.Logger, url string, timeout time.Duration) *Indexer {
	return &Indexer{
		log:     log,
		url:     url,
		timeout: timeout,
	}
}

// Indexer asks the external worker to chunk and embed a document.
type Indexer struct {
	log     *slog.Logger
	url     string
	timeout time.Duration
}

type indexRequest struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Text       string `json:"text"`
}

func (ix *Indexer) Index(ctx context.Context, doc models.Document) (err error) {
	if ix == nil || ix.url == "" {
		return ErrIndexerNotConfigured
	}
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.IndexRequests.WithLabelValues(outcome).Inc()
	}()
	if ix.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ix.timeout)
		defer cancel()
	}
	buf, err := json.Marshal(indexRequest{
		DocumentID: doc.ID,
		Title:      doc.Title,
		URL:        doc.URL,
		Text:       doc.Text,
	})
	if err != nil {
		return fmt.Errorf("documents: failed to marshal index request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ix.url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("documents: failed to create index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := jsonapi.Raw(req)
	if err != nil {
		return fmt.Errorf("documents: index request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	ix.log.Info("document sent for indexing", slog.String("id", doc.ID))
	return nil
}
