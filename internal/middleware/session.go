// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/codersmeet/internal/gateway"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/session"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var requestAuthContextKey = contextKey("request_auth")

// SessionResolver はセッションIDから認証済みIDを解決する。
// auth.Serviceの部分集合として定義する。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*model.Principal, error)
}

// RequestAuth はリクエストごとの認証状態の通知元と遷移先の記録。
// ハンドラーはサインイン・サインアウト時にNotifierへ通知し、Navigatorから遷移先を取り出す。
type RequestAuth struct {
	Notifier  *gateway.AuthNotifier
	Navigator *session.Recorder
}

// NewSessionMiddleware はリクエストごとにセッションストアを生成し、コンテキストに格納するミドルウェアを返す。
// Cookieのセッションを解決して初回の認証状態を通知する。未ログインのリクエストもそのまま通す。
func NewSessionMiddleware(resolver SessionResolver, profiles session.ProfileLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. リクエスト専用の通知元とストアを生成
			auth := &RequestAuth{
				Notifier:  gateway.NewAuthNotifier(),
				Navigator: &session.Recorder{},
			}
			store := session.NewStore(r.Context(), auth.Notifier, profiles, auth.Navigator)
			defer store.Close()

			// 2. Cookieのセッションを解決
			var principal *model.Principal
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				principal, err = resolver.ResolveSession(r.Context(), cookie.Value)
				if err != nil {
					slog.Error("failed to resolve session",
						slog.String("error", err.Error()),
					)
					principal = nil
				}
			}

			// 3. 初回の認証状態を通知（未ログイン時の遷移要求は破棄する）
			auth.Notifier.Publish(principal)
			auth.Navigator.Take()

			ctx := session.WithStore(r.Context(), store)
			ctx = context.WithValue(ctx, requestAuthContextKey, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth はログイン済みでないリクエストに401を返すミドルウェア。
// NewSessionMiddlewareの後に配置する。
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := UserIDFromContext(r.Context()); err != nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext はリクエストコンテキストのセッションからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID := session.UserIDFromContext(ctx)
	if userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// RequestAuthFromContext はリクエストごとの認証状態の通知元を取得する。
func RequestAuthFromContext(ctx context.Context) (*RequestAuth, bool) {
	auth, ok := ctx.Value(requestAuthContextKey).(*RequestAuth)
	return auth, ok && auth != nil
}

// ContextWithPrincipal は指定の認証済みIDで解決済みのセッションストアをコンテキストに格納する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *model.Principal, profiles session.ProfileLoader) context.Context {
	auth := &RequestAuth{Notifier: gateway.NewAuthNotifier(), Navigator: &session.Recorder{}}
	store := session.NewStore(ctx, auth.Notifier, profiles, auth.Navigator)
	auth.Notifier.Publish(principal)
	auth.Navigator.Take()
	ctx = session.WithStore(ctx, store)
	return context.WithValue(ctx, requestAuthContextKey, auth)
}
