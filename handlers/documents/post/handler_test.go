package post

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/ragtutor/auth"
	"github.com/a-h/ragtutor/models"
	"github.com/google/go-cmp/cmp"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCreator struct {
	owner string
	doc   models.Document
	err   error
}

func (f *fakeCreator) Create(ctx context.Context, owner string, doc models.Document) (string, error) {
	f.owner, f.doc = owner, doc
	return "rec1", f.err
}

type fakeIndexer struct {
	indexed []models.Document
	err     error
}

func (f *fakeIndexer) Index(ctx context.Context, doc models.Document) error {
	f.indexed = append(f.indexed, doc)
	return f.err
}

func TestHandler(t *testing.T) {
	body := `{"document":{"title":"Biology 101","url":"https://example.com/bio.pdf","text":"Cells."}}`
	t.Run("anonymous callers can't create documents", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(discard, &fakeCreator{}, &fakeIndexer{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body)))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
	t.Run("documents without a title are rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := auth.WithUser(httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"document":{"text":"x"}}`)), "alice")
		New(discard, &fakeCreator{}, &fakeIndexer{}).ServeHTTP(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
	t.Run("documents are created and sent for indexing", func(t *testing.T) {
		c, ix := &fakeCreator{}, &fakeIndexer{}
		w := httptest.NewRecorder()
		r := auth.WithUser(httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body)), "alice")
		New(discard, c, ix).ServeHTTP(w, r)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
		if c.owner != "alice" {
			t.Errorf("expected owner alice, got %q", c.owner)
		}
		expected := []models.Document{{ID: "rec1", Title: "Biology 101", URL: "https://example.com/bio.pdf", Text: "Cells."}}
		if diff := cmp.Diff(expected, ix.indexed); diff != "" {
			t.Error(diff)
		}
		var resp models.DocumentsPostResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if diff := cmp.Diff(models.DocumentsPostResponse{ID: "rec1", Indexing: true}, resp); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("indexing failures are reported in the response", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := auth.WithUser(httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body)), "alice")
		New(discard, &fakeCreator{}, &fakeIndexer{err: errors.New("busy")}).ServeHTTP(w, r)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
		var resp models.DocumentsPostResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Indexing {
			t.Error("expected indexing to be false")
		}
	})
	t.Run("store failures are internal errors", func(t *testing.T) {
		ix := &fakeIndexer{}
		w := httptest.NewRecorder()
		r := auth.WithUser(httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body)), "alice")
		New(discard, &fakeCreator{err: errors.New("down")}, ix).ServeHTTP(w, r)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
		if len(ix.indexed) != 0 {
			t.Error("expected nothing to be indexed")
		}
	})
}
