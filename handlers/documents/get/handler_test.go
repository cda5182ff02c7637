package get

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/ragtutor/auth"
	"github.com/a-h/ragtutor/models"
	"github.com/google/go-cmp/cmp"
)

type fakeLister map[string][]models.Document

func (f fakeLister) List(ctx context.Context, owner string) ([]models.Document, error) {
	if owner == "broken" {
		return nil, errors.New("pocketbase unavailable")
	}
	return f[owner], nil
}

func TestHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(log, fakeLister{
		"alice": {{ID: "d1", Title: "Biology", URL: "https://example.com/bio.pdf"}},
	})
	tests := []struct {
		name           string
		user           string
		expectedStatus int
		expected       models.DocumentsGetResponse
	}{
		{
			name:           "anonymous callers are unauthorized",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "owners see their documents",
			user:           "alice",
			expectedStatus: http.StatusOK,
			expected:       models.DocumentsGetResponse{Documents: []models.Document{{ID: "d1", Title: "Biology", URL: "https://example.com/bio.pdf"}}},
		},
		{
			name:           "users without documents get an empty list",
			user:           "bob",
			expectedStatus: http.StatusOK,
			expected:       models.DocumentsGetResponse{Documents: []models.Document{}},
		},
		{
			name:           "store failures are server errors",
			user:           "broken",
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/documents", nil)
			if tt.user != "" {
				r = auth.WithUser(r, tt.user)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if w.Code != http.StatusOK {
				return
			}
			var resp models.DocumentsGetResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.expected, resp); diff != "" {
				t.Error(diff)
			}
		})
	}
}
