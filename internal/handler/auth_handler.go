// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/codersmeet/internal/auth"
	"github.com/hitoshi/codersmeet/internal/middleware"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/session"
)

const oauthStateCookie = "oauth_state"

// AuthGateway は認証ハンドラーが使うゲートウェイの認証操作。
type AuthGateway interface {
	Authenticate(ctx context.Context, email, password string) (*model.Principal, error)
	AuthenticateWithProvider(ctx context.Context, params auth.CallbackParams) (*model.Principal, error)
	CreateAccount(ctx context.Context, email, password, displayName string) (*model.Principal, error)
	SignOut()
}

// SessionServiceInterface はログインセッションの発行と破棄を行うサービスインターフェース。
type SessionServiceInterface interface {
	GetLoginURL(state string) (string, error)
	CreateSession(ctx context.Context, principal *model.Principal) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthRecorder は認証試行のメトリクスを記録する。
type AuthRecorder interface {
	RecordAuthAttempt(method string, success bool)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はサインイン・サインアップ・OAuth・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	gateway  AuthGateway
	sessions SessionServiceInterface
	metrics  AuthRecorder
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnilでもよい。
func NewAuthHandler(gateway AuthGateway, sessions SessionServiceInterface, metrics AuthRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		gateway:  gateway,
		sessions: sessions,
		metrics:  metrics,
		config:   config,
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// authResponse はサインイン成功時のレスポンス。
type authResponse struct {
	User     *model.User `json:"user"`
	Redirect string      `json:"redirect"`
}

// SignIn はメールアドレスとパスワードでサインインする。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	principal, err := h.gateway.Authenticate(r.Context(), req.Email, req.Password)
	h.recordAttempt(auth.ProviderPassword, err == nil)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.startSession(w, r, principal)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Redirect: "/"})
}

// SignUp はアカウントとプロフィールを作成し、サインインする。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	principal, err := h.gateway.CreateAccount(r.Context(), req.Email, req.Password, req.DisplayName)
	h.recordAttempt("signup", err == nil)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.startSession(w, r, principal)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, Redirect: "/"})
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	loginURL, err := h.sessions.GetLoginURL(state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// 失敗時はエラーコードを付けてサインイン画面にリダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. コールバックパラメータの収集
	q := r.URL.Query()
	params := auth.CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}
	if stateCookie, err := r.Cookie(oauthStateCookie); err == nil {
		params.ExpectedState = stateCookie.Value
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認証処理
	principal, err := h.gateway.AuthenticateWithProvider(r.Context(), params)
	h.recordAttempt(auth.ProviderGoogle, err == nil)
	if err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			handleServiceError(w, err)
			return
		}
		slog.Warn("oauth callback failed", slog.String("code", apiErr.Code))
		http.Redirect(w, r, h.frontendURL("/signin?error="+url.QueryEscape(apiErr.Code)), http.StatusSeeOther)
		return
	}

	// 3. セッションCookieを設定してフロントエンドにリダイレクト
	if _, err := h.startSession(w, r, principal); err != nil {
		handleServiceError(w, err)
		return
	}
	http.Redirect(w, r, h.frontendURL("/"), http.StatusSeeOther)
}

// Logout はセッションを破棄し、ランディングページにリダイレクトする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.sessions.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}
	h.setSessionCookie(w, "", -1)

	// サインアウトを通知し、セッションストアが要求した遷移先へリダイレクト
	h.gateway.SignOut()
	dest := "/"
	if ra, ok := middleware.RequestAuthFromContext(r.Context()); ok {
		ra.Notifier.Publish(nil)
		if p := ra.Navigator.Take(); p != "" {
			dest = p
		}
	}
	http.Redirect(w, r, h.frontendURL(dest), http.StatusSeeOther)
}

// Me は現在のログインユーザーのプロフィールを返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok || !store.IsAuthenticated() {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, store.CurrentUser())
}

// startSession はログインセッションを発行してCookieに設定し、
// リクエストのセッションストアへサインインを通知する。
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, principal *model.Principal) (*model.User, error) {
	sess, err := h.sessions.CreateSession(r.Context(), principal)
	if err != nil {
		return nil, err
	}
	h.setSessionCookie(w, sess.ID, h.config.SessionMaxAge)

	ra, ok := middleware.RequestAuthFromContext(r.Context())
	if !ok {
		return nil, nil
	}
	ra.Notifier.Publish(principal)
	ra.Navigator.Take()
	store, _ := session.FromContext(r.Context())
	return store.CurrentUser(), nil
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) recordAttempt(method string, success bool) {
	if h.metrics != nil {
		h.metrics.RecordAuthAttempt(method, success)
	}
}

// frontendURL はBaseURLにパスを連結する。
func (h *AuthHandler) frontendURL(path string) string {
	return strings.TrimRight(h.config.BaseURL, "/") + path
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
