package content

import (
	"sync"

	"github.com/hitoshi/codersmeet/internal/model"
)

type formKey struct {
	userID string
	kind   model.Kind
}

// Registry はユーザーと種別ごとにFormを保持する。
// 同じユーザーが同じ種別を並行して送信した場合、同一のFormが使われる。
type Registry struct {
	deps Deps

	mu    sync.Mutex
	forms map[formKey]*Form
}

// NewRegistry はRegistryを生成する。
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, forms: make(map[formKey]*Form)}
}

// For はユーザーと種別に対応するFormを返す。未作成の場合は生成する。
func (r *Registry) For(userID string, kind model.Kind) (*Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := formKey{userID: userID, kind: kind}
	if f, ok := r.forms[key]; ok {
		return f, nil
	}
	f, err := NewForm(kind, r.deps)
	if err != nil {
		return nil, err
	}
	r.forms[key] = f
	return f, nil
}

// Release は送信中でないFormを破棄する。
func (r *Registry) Release(userID string, kind model.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := formKey{userID: userID, kind: kind}
	if f, ok := r.forms[key]; ok && !f.Submitting() {
		delete(r.forms, key)
	}
}
