// Package auth はメールアドレス・パスワード認証、OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// 認証方式
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	PhotoURL       string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// CallbackParams はプロバイダーのコールバックで受け取るパラメータ。
type CallbackParams struct {
	Code          string
	State         string
	ExpectedState string
	Error         string // プロバイダーが返したエラーコード
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge     int // セッション有効期間（秒）
	MinPasswordLength int // パスワードの最小文字数（デフォルト: 6）
	BcryptCost        int // bcryptのコスト（デフォルト: bcrypt.DefaultCost）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。oauthがnilの場合は外部プロバイダー認証を無効とする。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	if config.MinPasswordLength <= 0 {
		config.MinPasswordLength = 6
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		accountRepo: accountRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// ProviderEnabled は外部プロバイダー認証が有効かを返す。
func (s *Service) ProviderEnabled() bool {
	return s.oauth != nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", model.NewProviderDisabledError()
	}
	return s.oauth.GetLoginURL(state), nil
}

// Authenticate はメールアドレスとパスワードで認証する。
// プロフィールのドキュメントが無ければ作成し、あれば最終ログイン日時を更新する。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Principal, error) {
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("failed to look up account", slog.String("error", err.Error()))
		return nil, model.NewNetworkError()
	}
	if account == nil || account.PasswordHash == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	principal := &model.Principal{
		UID:         account.UID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		PhotoURL:    account.PhotoURL,
		Provider:    ProviderPassword,
	}

	if err := s.ensureProfile(ctx, principal); err != nil {
		slog.Error("failed to ensure user profile",
			slog.String("user_id", principal.UID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNetworkError()
	}

	slog.Info("user signed in",
		slog.String("user_id", principal.UID),
		slog.String("provider", ProviderPassword),
	)
	return principal, nil
}

// CreateAccount はパスワードアカウントとプロフィールを作成する。
// ユーザー名はメールアドレスのローカル部から生成する。
func (s *Service) CreateAccount(ctx context.Context, email, password, displayName string) (*model.Principal, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewInvalidInputError("email")
	}
	if len([]rune(password)) < s.config.MinPasswordLength {
		return nil, model.NewWeakPasswordError(s.config.MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	uid := uuid.New().String()
	if displayName == "" {
		displayName = model.UsernameFromEmail(email)
	}

	user := &model.User{
		ID:          uid,
		Email:       email,
		DisplayName: displayName,
		Username:    model.UsernameFromEmail(email),
		Skills:      []string{},
		CreatedAt:   now,
		LastLogin:   now,
	}
	account := &model.Account{
		Email:        email,
		UID:          uid,
		DisplayName:  displayName,
		Provider:     ProviderPassword,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}

	if err := s.userRepo.CreateWithAccount(ctx, user, account); err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return nil, model.NewEmailInUseError()
		}
		slog.Error("failed to create account", slog.String("error", err.Error()))
		return nil, model.NewNetworkError()
	}

	slog.Info("new user created",
		slog.String("user_id", uid),
		slog.String("provider", ProviderPassword),
	)

	return &model.Principal{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		Provider:    ProviderPassword,
	}, nil
}

// AuthenticateWithProvider はOAuthコールバックを処理し、Principalを返す。
// 未登録ユーザーの場合はプロフィールとidentityを同時に作成する。
func (s *Service) AuthenticateWithProvider(ctx context.Context, params CallbackParams) (*model.Principal, error) {
	if s.oauth == nil {
		return nil, model.NewProviderDisabledError()
	}

	// 1. プロバイダーが返したエラーの分類
	if params.Error != "" {
		return nil, classifyProviderError(params.Error)
	}

	// 2. stateの検証（CSRF対策）
	if params.ExpectedState == "" || params.State != params.ExpectedState {
		slog.Warn("oauth state mismatch", slog.String("query_state", params.State))
		return nil, model.NewUnauthorizedOriginError()
	}
	if params.Code == "" {
		return nil, model.NewUserCancelledError()
	}

	// 3. 認可コードをトークンに交換し、ユーザー情報を取得
	info, err := s.oauth.ExchangeCode(ctx, params.Code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		return nil, model.NewNetworkError()
	}

	// 4. identityで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		slog.Error("failed to find identity", slog.String("error", err.Error()))
		return nil, model.NewNetworkError()
	}

	principal := &model.Principal{
		Email:       info.Email,
		DisplayName: info.Name,
		PhotoURL:    info.PhotoURL,
		Provider:    info.Provider,
	}

	if identity != nil {
		// 5a. 既存ユーザー
		principal.UID = identity.UserID
		if err := s.ensureProfile(ctx, principal); err != nil {
			slog.Error("failed to ensure user profile", slog.String("error", err.Error()))
			return nil, model.NewNetworkError()
		}
		slog.Info("existing user logged in",
			slog.String("user_id", principal.UID),
			slog.String("provider", info.Provider),
		)
		return principal, nil
	}

	// 5b. 新規ユーザー: プロフィールとidentityを同時に作成
	now := s.now().UTC()
	principal.UID = uuid.New().String()
	user := profileFromPrincipal(principal, now)
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         principal.UID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, user, newIdentity); err != nil {
		slog.Error("failed to create user and identity", slog.String("error", err.Error()))
		return nil, model.NewNetworkError()
	}

	slog.Info("new user created",
		slog.String("user_id", principal.UID),
		slog.String("provider", info.Provider),
	)
	return principal, nil
}

// CreateSession はPrincipalに対するログインセッションを発行する。
func (s *Service) CreateSession(ctx context.Context, principal *model.Principal) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now().UTC()
	session := &model.Session{
		ID:        sessionID,
		UserID:    principal.UID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// ResolveSession はセッションIDからPrincipalを返す。
// セッションが存在しないまたは期限切れの場合はnilを返す。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.Principal, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	return &model.Principal{UID: session.UserID}, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// ensureProfile はプロフィールが無ければ作成し、あれば最終ログイン日時を更新する。
func (s *Service) ensureProfile(ctx context.Context, principal *model.Principal) error {
	now := s.now().UTC()

	existing, err := s.userRepo.FindByID(ctx, principal.UID)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.userRepo.TouchLastLogin(ctx, principal.UID, now)
	}

	return s.userRepo.Create(ctx, profileFromPrincipal(principal, now))
}

// classifyProviderError はプロバイダーのエラーコードを認証エラーに分類する。
func classifyProviderError(code string) *model.APIError {
	switch code {
	case "access_denied", "popup_closed_by_user", "cancelled_popup_request":
		return model.NewUserCancelledError()
	case "popup_blocked_by_browser", "popup_blocked":
		return model.NewPopupBlockedError()
	case "unauthorized_domain", "unauthorized_client", "origin_mismatch":
		return model.NewUnauthorizedOriginError()
	default:
		return model.NewNetworkError()
	}
}

func profileFromPrincipal(p *model.Principal, now time.Time) *model.User {
	u := &model.User{
		ID:          p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		Username:    model.UsernameFromEmail(p.Email),
		Skills:      []string{},
		CreatedAt:   now,
		LastLogin:   now,
	}
	u.ApplyDefaults()
	return u
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
