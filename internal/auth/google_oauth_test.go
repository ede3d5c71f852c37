package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTokenServer(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleOAuthProvider_GetLoginURL(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "cm-client",
		RedirectURL: "http://localhost:8080/auth/google/callback",
	})

	raw := provider.GetLoginURL("state-abc")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", raw, err)
	}
	q := u.Query()

	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q, want accounts.google.com", u.Host)
	}
	checks := map[string]string{
		"client_id":     "cm-client",
		"state":         "state-abc",
		"response_type": "code",
		"redirect_uri":  "http://localhost:8080/auth/google/callback",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	for _, scope := range []string{"openid", "email", "profile"} {
		if !strings.Contains(q.Get("scope"), scope) {
			t.Errorf("scope %q missing from %q", scope, q.Get("scope"))
		}
	}
}

func TestGoogleOAuthProvider_ExchangeCode_Success(t *testing.T) {
	tokenServer := newTokenServer(t, http.StatusOK, map[string]any{
		"access_token": "access-xyz",
		"token_type":   "Bearer",
		"expires_in":   3600,
	})

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-xyz" {
			t.Errorf("Authorization = %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":     "sub-42",
			"email":   "dev@example.com",
			"name":    "Dev Person",
			"picture": "https://example.com/dev.png",
		})
	}))
	defer userInfoServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "cm-client",
		ClientSecret: "cm-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	info, err := provider.ExchangeCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	want := OAuthUserInfo{
		ProviderUserID: "sub-42",
		Email:          "dev@example.com",
		Name:           "Dev Person",
		PhotoURL:       "https://example.com/dev.png",
		Provider:       ProviderGoogle,
	}
	if *info != want {
		t.Errorf("info = %+v, want %+v", *info, want)
	}
}

func TestGoogleOAuthProvider_ExchangeCode_Errors(t *testing.T) {
	tests := []struct {
		name        string
		tokenStatus int
		tokenBody   map[string]any
		userStatus  int
		userBody    map[string]any
	}{
		{
			name:        "トークン交換の拒否",
			tokenStatus: http.StatusBadRequest,
			tokenBody:   map[string]any{"error": "invalid_grant"},
		},
		{
			name:        "ユーザー情報の取得失敗",
			tokenStatus: http.StatusOK,
			tokenBody:   map[string]any{"access_token": "a", "token_type": "Bearer"},
			userStatus:  http.StatusUnauthorized,
		},
		{
			name:        "subが空",
			tokenStatus: http.StatusOK,
			tokenBody:   map[string]any{"access_token": "a", "token_type": "Bearer"},
			userStatus:  http.StatusOK,
			userBody:    map[string]any{"email": "x@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenServer := newTokenServer(t, tt.tokenStatus, tt.tokenBody)
			userInfoServer := newTokenServer(t, tt.userStatus, tt.userBody)

			provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
				ClientID:     "cm-client",
				ClientSecret: "cm-secret",
				TokenURL:     tokenServer.URL,
				UserInfoURL:  userInfoServer.URL,
			})

			if _, err := provider.ExchangeCode(context.Background(), "code"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
