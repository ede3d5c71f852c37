package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// --- モック定義 ---

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, _ string) error {
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

// --- ヘルパー ---

type testEnv struct {
	store    *docstore.MemoryStore
	users    *repository.DocUserRepo
	sessions *mockSessionRepo
	svc      *Service
}

func newTestEnv(oauth OAuthProvider) *testEnv {
	store := docstore.NewMemoryStore()
	users := repository.NewDocUserRepo(store)
	sessions := &mockSessionRepo{}
	svc := NewService(oauth, users, users, users, sessions, ServiceConfig{
		SessionMaxAge: 3600,
		BcryptCost:    bcrypt.MinCost,
	})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return &testEnv{store: store, users: users, sessions: sessions, svc: svc}
}

func assertAPIErrorCode(t *testing.T, err error, want string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != want {
		t.Errorf("code = %q, want %q", apiErr.Code, want)
	}
}

// --- テスト ---

func TestCreateAccount_WritesProfileWithUsernameFromEmail(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	p, err := env.svc.CreateAccount(ctx, "grace.hopper@example.com", "cobol-rules", "")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if p.Provider != ProviderPassword {
		t.Errorf("provider = %q, want %q", p.Provider, ProviderPassword)
	}

	u, err := env.users.FindByID(ctx, p.UID)
	if err != nil || u == nil {
		t.Fatalf("profile not written: %v", err)
	}
	if u.Username != "grace.hopper" {
		t.Errorf("username = %q, want grace.hopper", u.Username)
	}
	if u.DisplayName != "grace.hopper" {
		t.Errorf("displayName = %q, want grace.hopper", u.DisplayName)
	}
	if len(u.Skills) != 0 || u.Followers != 0 {
		t.Errorf("unexpected defaults: %+v", u)
	}
}

func TestCreateAccount_Failures(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	if _, err := env.svc.CreateAccount(ctx, "ada@example.com", "secret1", "Ada"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"登録済みメールアドレス", "ADA@example.com", "another1", model.ErrCodeEmailInUse},
		{"6文字未満のパスワード", "new@example.com", "12345", model.ErrCodeWeakPassword},
		{"不正なメールアドレス", "not-an-email", "secret1", model.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateAccount(ctx, tt.email, tt.password, "")
			assertAPIErrorCode(t, err, tt.wantCode)
		})
	}

	if n := env.store.Len(model.UsersPath); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestAuthenticate_ValidAndInvalidCredentials(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	created, err := env.svc.CreateAccount(ctx, "linus@example.com", "penguin", "Linus")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	p, err := env.svc.Authenticate(ctx, "linus@example.com", "penguin")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.UID != created.UID {
		t.Errorf("uid = %q, want %q", p.UID, created.UID)
	}

	_, err = env.svc.Authenticate(ctx, "linus@example.com", "wrong")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)

	_, err = env.svc.Authenticate(ctx, "nobody@example.com", "penguin")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

func TestAuthenticate_RecreatesMissingProfile(t *testing.T) {
	env := newTestEnv(nil)
	ctx := context.Background()

	created, err := env.svc.CreateAccount(ctx, "ken@example.com", "unix1969", "Ken")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	// プロフィールだけ消えた状態
	if err := env.store.Delete(ctx, model.UsersPath, created.UID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := env.svc.Authenticate(ctx, "ken@example.com", "unix1969"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	u, _ := env.users.FindByID(ctx, created.UID)
	if u == nil {
		t.Fatal("profile should be recreated on sign in")
	}
	if u.DisplayName != "Ken" {
		t.Errorf("displayName = %q, want Ken", u.DisplayName)
	}
}

func TestAuthenticateWithProvider_NewUser_CreatesProfileAndIdentity(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, code string) (*OAuthUserInfo, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want auth-code", code)
			}
			return &OAuthUserInfo{
				ProviderUserID: "google-123",
				Email:          "margaret@example.com",
				Name:           "Margaret",
				PhotoURL:       "https://example.com/m.png",
				Provider:       ProviderGoogle,
			}, nil
		},
	}
	env := newTestEnv(provider)
	ctx := context.Background()

	p, err := env.svc.AuthenticateWithProvider(ctx, CallbackParams{
		Code: "auth-code", State: "s1", ExpectedState: "s1",
	})
	if err != nil {
		t.Fatalf("AuthenticateWithProvider: %v", err)
	}

	u, _ := env.users.FindByID(ctx, p.UID)
	if u == nil {
		t.Fatal("profile not created")
	}
	if u.PhotoURL != "https://example.com/m.png" || u.Username != "margaret" {
		t.Errorf("unexpected profile: %+v", u)
	}

	ident, _ := env.users.FindByProviderAndProviderUserID(ctx, ProviderGoogle, "google-123")
	if ident == nil || ident.UserID != p.UID {
		t.Errorf("identity = %+v, want user %s", ident, p.UID)
	}

	// 2回目は既存ユーザーとして同じUIDを返す
	again, err := env.svc.AuthenticateWithProvider(ctx, CallbackParams{
		Code: "auth-code", State: "s2", ExpectedState: "s2",
	})
	if err != nil {
		t.Fatalf("second AuthenticateWithProvider: %v", err)
	}
	if again.UID != p.UID {
		t.Errorf("uid = %q, want %q", again.UID, p.UID)
	}
	if n := env.store.Len(model.UsersPath); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestAuthenticateWithProvider_ErrorClassification(t *testing.T) {
	exchangeFails := &mockOAuthProvider{
		exchangeCodeFn: func(_ context.Context, _ string) (*OAuthUserInfo, error) {
			return nil, errors.New("connection reset")
		},
	}

	tests := []struct {
		name     string
		params   CallbackParams
		wantCode string
	}{
		{"ユーザーがキャンセル", CallbackParams{Error: "access_denied"}, model.ErrCodeUserCancelled},
		{"ポップアップを閉じた", CallbackParams{Error: "popup_closed_by_user"}, model.ErrCodeUserCancelled},
		{"ポップアップブロック", CallbackParams{Error: "popup_blocked_by_browser"}, model.ErrCodePopupBlocked},
		{"未承認ドメイン", CallbackParams{Error: "unauthorized_domain"}, model.ErrCodeUnauthorizedOrigin},
		{"state不一致", CallbackParams{Code: "c", State: "a", ExpectedState: "b"}, model.ErrCodeUnauthorizedOrigin},
		{"stateなし", CallbackParams{Code: "c"}, model.ErrCodeUnauthorizedOrigin},
		{"その他のエラー", CallbackParams{Error: "server_error"}, model.ErrCodeNetworkError},
		{"トークン交換失敗", CallbackParams{Code: "c", State: "s", ExpectedState: "s"}, model.ErrCodeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(exchangeFails)
			_, err := env.svc.AuthenticateWithProvider(context.Background(), tt.params)
			assertAPIErrorCode(t, err, tt.wantCode)
			if n := env.store.Len(model.UsersPath); n != 0 {
				t.Errorf("users = %d, want 0", n)
			}
		})
	}
}

func TestProviderDisabled(t *testing.T) {
	env := newTestEnv(nil)

	if env.svc.ProviderEnabled() {
		t.Error("ProviderEnabled should be false without an OAuth provider")
	}
	_, err := env.svc.GetLoginURL("state")
	assertAPIErrorCode(t, err, model.ErrCodeProviderDisabled)

	_, err = env.svc.AuthenticateWithProvider(context.Background(), CallbackParams{Code: "c"})
	assertAPIErrorCode(t, err, model.ErrCodeProviderDisabled)
}

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	env := newTestEnv(provider)

	url, err := env.svc.GetLoginURL("test-state")
	if err != nil {
		t.Fatalf("GetLoginURL: %v", err)
	}
	if url != "https://accounts.google.com/o/oauth2/auth?state=test-state" {
		t.Errorf("url = %q", url)
	}
}

func TestCreateSession_SetsExpiry(t *testing.T) {
	env := newTestEnv(nil)
	var saved *model.Session
	env.sessions.createFn = func(_ context.Context, s *model.Session) error {
		saved = s
		return nil
	}

	s, err := env.svc.CreateSession(context.Background(), &model.Principal{UID: "u1"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if saved != s {
		t.Error("session was not persisted")
	}
	if len(s.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(s.ID))
	}
	want := env.svc.now().Add(time.Hour)
	if !s.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, want)
	}
}

func TestCreateSession_RepositoryError(t *testing.T) {
	env := newTestEnv(nil)
	env.sessions.createFn = func(_ context.Context, _ *model.Session) error {
		return errors.New("db down")
	}

	if _, err := env.svc.CreateSession(context.Background(), &model.Principal{UID: "u1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveSession(t *testing.T) {
	env := newTestEnv(nil)
	env.sessions.findByIDFn = func(_ context.Context, id string) (*model.Session, error) {
		if id == "valid" {
			return &model.Session{ID: id, UserID: "u1"}, nil
		}
		return nil, nil
	}
	ctx := context.Background()

	p, err := env.svc.ResolveSession(ctx, "valid")
	if err != nil || p == nil || p.UID != "u1" {
		t.Errorf("ResolveSession(valid) = %+v, %v", p, err)
	}

	p, err = env.svc.ResolveSession(ctx, "unknown")
	if err != nil || p != nil {
		t.Errorf("ResolveSession(unknown) = %+v, %v", p, err)
	}

	p, err = env.svc.ResolveSession(ctx, "")
	if err != nil || p != nil {
		t.Errorf("ResolveSession(empty) = %+v, %v", p, err)
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	env := newTestEnv(nil)
	var deleted string
	env.sessions.deleteByIDFn = func(_ context.Context, id string) error {
		deleted = id
		return nil
	}

	if err := env.svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if deleted != "session-1" {
		t.Errorf("deleted = %q, want session-1", deleted)
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	env := newTestEnv(nil)
	if err := env.svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}
