package session

import (
	"context"
	"sync"
)

type contextKey struct{}

// WithStore はStoreをコンテキストに格納する。
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext はコンテキストからStoreを取得する。
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(contextKey{}).(*Store)
	return s, ok && s != nil
}

// UserIDFromContext はコンテキストのStoreから現在のユーザーIDを返す。
func UserIDFromContext(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.UserID()
}

// Recorder は要求された遷移先を記録するNavigator。
// サーバー側ではリダイレクト先の決定に使う。
type Recorder struct {
	mu   sync.Mutex
	path string
}

// Navigate は遷移先を記録する。
func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

// Take は記録された遷移先を返し、記録を消去する。
func (r *Recorder) Take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.path
	r.path = ""
	return p
}

// compile-time interface check
var _ Navigator = (*Recorder)(nil)
