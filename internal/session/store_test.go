package session

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/codersmeet/internal/gateway"
	"github.com/hitoshi/codersmeet/internal/model"
)

type mockProfiles struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
	calls      int
}

func (m *mockProfiles) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.calls++
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.User{ID: id, DisplayName: "User " + id}, nil
}

var _ ProfileLoader = (*mockProfiles)(nil)

func TestStore_StartsResolving(t *testing.T) {
	n := gateway.NewAuthNotifier()
	s := NewStore(context.Background(), n, &mockProfiles{}, nil)
	defer s.Close()

	if !s.IsResolving() {
		t.Error("new store should be resolving")
	}
	if s.IsAuthenticated() {
		t.Error("new store should not be authenticated")
	}
	if n.ListenerCount() != 1 {
		t.Errorf("listeners = %d, want exactly 1", n.ListenerCount())
	}
}

func TestStore_PrincipalWithProfile(t *testing.T) {
	n := gateway.NewAuthNotifier()
	profiles := &mockProfiles{}
	s := NewStore(context.Background(), n, profiles, nil)
	defer s.Close()

	n.Publish(&model.Principal{UID: "u1"})

	if s.IsResolving() {
		t.Error("store should be resolved after notification")
	}
	if !s.IsAuthenticated() || s.UserID() != "u1" {
		t.Errorf("current user = %+v", s.CurrentUser())
	}
	if profiles.calls != 1 {
		t.Errorf("profile fetched %d times, want 1", profiles.calls)
	}
}

func TestStore_PrincipalWithoutProfileOrOnError(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, id string) (*model.User, error)
	}{
		{"プロフィール未作成", func(_ context.Context, _ string) (*model.User, error) { return nil, nil }},
		{"取得エラー", func(_ context.Context, _ string) (*model.User, error) { return nil, errors.New("unavailable") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := gateway.NewAuthNotifier()
			profiles := &mockProfiles{findByIDFn: tt.fn}
			s := NewStore(context.Background(), n, profiles, nil)
			defer s.Close()

			n.Publish(&model.Principal{UID: "u1"})

			if s.IsResolving() {
				t.Error("store should be resolved")
			}
			if s.CurrentUser() != nil {
				t.Errorf("identity = %+v, want nil", s.CurrentUser())
			}
			if s.Principal() == nil || s.Principal().UID != "u1" {
				t.Errorf("principal = %+v", s.Principal())
			}
			if profiles.calls != 1 {
				t.Errorf("profile fetched %d times, want 1 (no retry)", profiles.calls)
			}
		})
	}
}

// サインアウト通知で未認証になり、ランディングへ遷移する
func TestStore_SignOutNavigatesToLanding(t *testing.T) {
	n := gateway.NewAuthNotifier()
	nav := &Recorder{}
	s := NewStore(context.Background(), n, &mockProfiles{}, nav)
	defer s.Close()

	n.Publish(&model.Principal{UID: "u1"})
	if got := nav.Take(); got != "" {
		t.Errorf("sign in should not navigate, got %q", got)
	}

	n.Publish(nil)

	if s.IsAuthenticated() {
		t.Error("store should not be authenticated after sign out")
	}
	if s.IsResolving() {
		t.Error("store should remain resolved")
	}
	if got := nav.Take(); got != "/" {
		t.Errorf("navigated to %q, want /", got)
	}
	if got := nav.Take(); got != "" {
		t.Errorf("Take should clear the recorded path, got %q", got)
	}
}

func TestStore_CloseUnsubscribes(t *testing.T) {
	n := gateway.NewAuthNotifier()
	s := NewStore(context.Background(), n, &mockProfiles{}, nil)
	s.Close()

	n.Publish(&model.Principal{UID: "u1"})

	if !s.IsResolving() {
		t.Error("closed store should ignore notifications")
	}
	if n.ListenerCount() != 0 {
		t.Errorf("listeners = %d, want 0", n.ListenerCount())
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Error("empty context should not contain a store")
	}
	if UserIDFromContext(ctx) != "" {
		t.Error("empty context should have no user")
	}

	n := gateway.NewAuthNotifier()
	s := NewStore(ctx, n, &mockProfiles{}, nil)
	defer s.Close()
	n.Publish(&model.Principal{UID: "u9"})

	ctx = WithStore(ctx, s)
	got, ok := FromContext(ctx)
	if !ok || got != s {
		t.Fatal("store not found in context")
	}
	if UserIDFromContext(ctx) != "u9" {
		t.Errorf("UserIDFromContext = %q, want u9", UserIDFromContext(ctx))
	}
}
