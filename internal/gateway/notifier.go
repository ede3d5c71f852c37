package gateway

import (
	"sort"
	"sync"

	"github.com/hitoshi/codersmeet/internal/model"
)

// AuthListener は認証状態の変化を受け取るコールバック。
// サインアウト時はnilが渡される。
type AuthListener func(principal *model.Principal)

// AuthNotifier は認証状態の変化を登録済みリスナーに通知する。
type AuthNotifier struct {
	mu        sync.Mutex
	listeners map[int]AuthListener
	nextID    int
}

// NewAuthNotifier はAuthNotifierを生成する。
func NewAuthNotifier() *AuthNotifier {
	return &AuthNotifier{listeners: make(map[int]AuthListener)}
}

// OnAuthChange はリスナーを登録し、登録解除関数を返す。
func (n *AuthNotifier) OnAuthChange(cb AuthListener) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = cb
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Publish は登録順に全リスナーへ1回ずつ通知する。
func (n *AuthNotifier) Publish(principal *model.Principal) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	listeners := make([]AuthListener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, n.listeners[id])
	}
	n.mu.Unlock()

	// リスナーはロックを保持せずに呼び出す
	for _, cb := range listeners {
		cb(principal)
	}
}

// ListenerCount は登録中のリスナー数を返す。
func (n *AuthNotifier) ListenerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
