// Package session は認証状態の変化を購読し、現在のユーザーを保持するセッションストアを提供する。
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/codersmeet/internal/gateway"
	"github.com/hitoshi/codersmeet/internal/model"
)

// Subscriber は認証状態の変化を購読できる通知元。
type Subscriber interface {
	OnAuthChange(cb gateway.AuthListener) (unsubscribe func())
}

// ProfileLoader はusers/{uid}のプロフィールを取得する。
type ProfileLoader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Navigator は画面遷移を要求する。
type Navigator interface {
	Navigate(path string)
}

// Store は現在のユーザーと解決中フラグを保持する。
// 状態は登録したリスナー経由でのみ変更される。
type Store struct {
	mu        sync.RWMutex
	identity  *model.User
	principal *model.Principal
	resolving bool

	ctx         context.Context
	profiles    ProfileLoader
	nav         Navigator
	unsubscribe func()
}

// NewStore はStoreを生成し、notifierにリスナーを1つだけ登録する。
// ctxはプロフィール取得に使われる。
func NewStore(ctx context.Context, notifier Subscriber, profiles ProfileLoader, nav Navigator) *Store {
	s := &Store{
		resolving: true,
		ctx:       ctx,
		profiles:  profiles,
		nav:       nav,
	}
	s.unsubscribe = notifier.OnAuthChange(s.handleAuthChange)
	return s
}

// CurrentUser は現在のプロフィールを返す。未ログインまたはプロフィール未作成の場合はnil。
func (s *Store) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Principal は最後に通知された認証済みIDを返す。
func (s *Store) Principal() *model.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// UserID は現在のユーザーIDを返す。未ログインの場合は空文字列。
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.ID
}

// IsAuthenticated はプロフィールが読み込まれているかを返す。
func (s *Store) IsAuthenticated() bool {
	return s.CurrentUser() != nil
}

// IsResolving は最初の認証状態通知をまだ受け取っていないかを返す。
func (s *Store) IsResolving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolving
}

// Close はリスナーの登録を解除する。
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Store) handleAuthChange(principal *model.Principal) {
	if principal == nil {
		s.mu.Lock()
		s.identity = nil
		s.principal = nil
		s.resolving = false
		s.mu.Unlock()
		if s.nav != nil {
			s.nav.Navigate("/")
		}
		return
	}

	// プロフィールは1回だけ取得し、失敗時は未作成として扱う
	profile, err := s.profiles.FindByID(s.ctx, principal.UID)
	if err != nil {
		slog.Error("failed to fetch user profile",
			slog.String("user_id", principal.UID),
			slog.String("error", err.Error()),
		)
		profile = nil
	}

	s.mu.Lock()
	s.identity = profile
	s.principal = principal
	s.resolving = false
	s.mu.Unlock()
}
