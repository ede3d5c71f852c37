package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/session"
)

type mockResolver struct {
	resolveFn func(ctx context.Context, id string) (*model.Principal, error)
	calls     int
}

func (m *mockResolver) ResolveSession(ctx context.Context, id string) (*model.Principal, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, id)
	}
	return nil, nil
}

type mockProfiles struct{}

func (mockProfiles) FindByID(_ context.Context, id string) (*model.User, error) {
	return &model.User{ID: id, DisplayName: "User " + id}, nil
}

func validResolver() *mockResolver {
	return &mockResolver{resolveFn: func(_ context.Context, id string) (*model.Principal, error) {
		if id == "valid-session" {
			return &model.Principal{UID: "u1"}, nil
		}
		return nil, nil
	}}
}

func TestSessionMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		cookie    string
		resolver  *mockResolver
		wantUser  string
		wantCalls int
	}{
		{name: "有効なセッション", cookie: "valid-session", resolver: validResolver(), wantUser: "u1", wantCalls: 1},
		{name: "Cookieなし", cookie: "", resolver: validResolver(), wantUser: "", wantCalls: 0},
		{name: "期限切れまたは不明なセッション", cookie: "expired", resolver: validResolver(), wantUser: "", wantCalls: 1},
		{
			name:   "解決エラーは未ログイン扱い",
			cookie: "valid-session",
			resolver: &mockResolver{resolveFn: func(context.Context, string) (*model.Principal, error) {
				return nil, errors.New("db down")
			}},
			wantUser:  "",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotUser      string
				resolving    bool
				pendingRoute string
			)
			handler := NewSessionMiddleware(tt.resolver, mockProfiles{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = session.UserIDFromContext(r.Context())
				store, _ := session.FromContext(r.Context())
				resolving = store.IsResolving()
				auth, _ := RequestAuthFromContext(r.Context())
				pendingRoute = auth.Navigator.Take()
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %q, want %q", gotUser, tt.wantUser)
			}
			if resolving {
				t.Error("store should be resolved before the handler runs")
			}
			if pendingRoute != "" {
				t.Errorf("initial navigation %q should be discarded", pendingRoute)
			}
			if tt.resolver.calls != tt.wantCalls {
				t.Errorf("resolver calls = %d, want %d", tt.resolver.calls, tt.wantCalls)
			}
		})
	}
}

func TestSessionMiddleware_SignOutWithinRequest(t *testing.T) {
	var (
		route         string
		authenticated bool
	)
	handler := NewSessionMiddleware(validResolver(), mockProfiles{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, _ := RequestAuthFromContext(r.Context())
		auth.Notifier.Publish(nil)
		route = auth.Navigator.Take()
		store, _ := session.FromContext(r.Context())
		authenticated = store.IsAuthenticated()
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if authenticated {
		t.Error("store should be signed out")
	}
	if route != "/" {
		t.Errorf("route = %q, want /", route)
	}
}

func TestRequireAuth(t *testing.T) {
	protected := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("未ログインは401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/create/post", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("ログイン済みは通過", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/create/post", nil)
		req = req.WithContext(ContextWithPrincipal(req.Context(), &model.Principal{UID: "u1"}, mockProfiles{}))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})
}

func TestUserIDFromContext(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
	ctx := ContextWithPrincipal(context.Background(), &model.Principal{UID: "u9"}, mockProfiles{})
	if id, err := UserIDFromContext(ctx); err != nil || id != "u9" {
		t.Errorf("UserIDFromContext() = %q, %v", id, err)
	}
}
