package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAuth(t *testing.T) {
	apiKeyToUserName := map[string]string{
		"test-api-key-1": "user-1",
		"test-api-key-2": "user-2",
	}
	tests := []struct {
		name           string
		req            func() *http.Request
		expectedStatus int
		expectedUser   string
		expectedOK     bool
	}{
		{
			name:           "no auth header is anonymous",
			req:            func() *http.Request { return httptest.NewRequest("GET", "/", nil) },
			expectedStatus: http.StatusOK,
		},
		{
			name: "auth header not in map returns 401",
			req: func() *http.Request {
				req := httptest.NewRequest("GET", "/", nil)
				req.Header.Set("Authorization", "Bearer not-in-map")
				return req
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "auth header in map returns 200",
			req: func() *http.Request {
				req := httptest.NewRequest("GET", "/", nil)
				req.Header.Set("Authorization", "Bearer test-api-key-1")
				return req
			},
			expectedStatus: http.StatusOK,
			expectedUser:   "user-1",
			expectedOK:     true,
		},
		{
			name: "auth header doesn't need Bearer prefix",
			req: func() *http.Request {
				req := httptest.NewRequest("GET", "/", nil)
				req.Header.Set("Authorization", "test-api-key-2")
				return req
			},
			expectedStatus: http.StatusOK,
			expectedUser:   "user-2",
			expectedOK:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user string
			var ok bool
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, ok = GetUser(r)
				w.WriteHeader(http.StatusOK)
			})

			auth := New(apiKeyToUserName, h)
			w := httptest.NewRecorder()
			auth.ServeHTTP(w, tt.req())
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if user != tt.expectedUser {
				t.Errorf("expected user to be %s, got %s", tt.expectedUser, user)
			}
			if ok != tt.expectedOK {
				t.Errorf("expected ok to be %v, got %v", tt.expectedOK, ok)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Run("no file means no keys", func(t *testing.T) {
		m, err := LoadFromFile("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m) != 0 {
			t.Errorf("expected no keys, got %v", m)
		}
	})
	t.Run("keys are read from JSON", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "apikeys.json")
		if err := os.WriteFile(name, []byte(`{"key-1":"alice"}`), 0o600); err != nil {
			t.Fatal(err)
		}
		m, err := LoadFromFile(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(map[string]string{"key-1": "alice"}, m); diff != "" {
			t.Error(diff)
		}
	})
}
