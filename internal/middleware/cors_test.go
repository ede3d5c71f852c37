package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("許可オリジンのヘッダー", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewCORSMiddleware("https://codersmeet.example")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

		h := rec.Header()
		if got := h.Get("Access-Control-Allow-Origin"); got != "https://codersmeet.example" {
			t.Errorf("Allow-Origin = %q", got)
		}
		if got := h.Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Allow-Credentials = %q", got)
		}
		if !strings.Contains(h.Get("Access-Control-Allow-Headers"), "X-CSRF-Token") {
			t.Errorf("Allow-Headers = %q, want X-CSRF-Token", h.Get("Access-Control-Allow-Headers"))
		}
		if h.Get("Vary") != "Origin" {
			t.Errorf("Vary = %q, want Origin", h.Get("Vary"))
		}
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("プリフライトは204", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewCORSMiddleware("https://codersmeet.example")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/posts", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("オリジン未設定ではヘッダーを付与しない", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewCORSMiddleware("")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})
}
