package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// memoryEntry はインメモリストアの1ドキュメント。
type memoryEntry struct {
	fields     map[string]any
	seq        uint64
	createTime time.Time
	updateTime time.Time
}

// MemoryStore はプロセス内で完結するStore実装。
// 開発用サーバーとテストで使用する。トランザクションはストア全体のロックで直列化する。
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]*memoryEntry
	seq         uint64
	now         func() time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memoryEntry),
		now:         time.Now,
	}
}

// Get はドキュメントを取得する。
func (s *MemoryStore) Get(ctx context.Context, path, id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(path, id)
}

// List はコレクション内のドキュメントを作成順に返す。
func (s *MemoryStore) List(ctx context.Context, path string, filters ...Filter) ([]*Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	wants := make([]Filter, 0, len(filters))
	for _, f := range filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, err
		}
		wants = append(wants, Filter{Field: f.Field, Value: v})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[path]
	ids := make([]string, 0, len(coll))
	for id, e := range coll {
		if matches(e.fields, wants) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return coll[ids[i]].seq < coll[ids[j]].seq
	})

	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, toDocument(path, id, coll[id]))
	}
	return docs, nil
}

// Set はドキュメントを作成または置き換える。
func (s *MemoryStore) Set(ctx context.Context, path, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(path, id, fields)
}

// Update はトップレベルのフィールドをマージする。
func (s *MemoryStore) Update(ctx context.Context, path, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(path, id, patch)
}

// Delete はドキュメントを削除する。
func (s *MemoryStore) Delete(ctx context.Context, path, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(path, id)
}

// RunTransaction はストア全体をロックしてfnを実行する。
// fnがエラーを返した場合は実行前の状態に戻す。
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(ctx, &memoryTx{store: s}); err != nil {
		s.collections = snapshot
		return err
	}
	return nil
}

// Close は何もしない。
func (s *MemoryStore) Close() error {
	return nil
}

// Len はコレクション内のドキュメント数を返す。テスト用。
func (s *MemoryStore) Len(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[path])
}

func (s *MemoryStore) get(path, id string) (*Document, error) {
	if err := ValidateDocument(path, id); err != nil {
		return nil, err
	}
	e, ok := s.collections[path][id]
	if !ok {
		return nil, nil
	}
	return toDocument(path, id, e), nil
}

func (s *MemoryStore) set(path, id string, fields map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}

	coll, ok := s.collections[path]
	if !ok {
		coll = make(map[string]*memoryEntry)
		s.collections[path] = coll
	}

	now := s.now()
	if e, ok := coll[id]; ok {
		e.fields = normalized
		e.updateTime = now
		return nil
	}

	s.seq++
	coll[id] = &memoryEntry{
		fields:     normalized,
		seq:        s.seq,
		createTime: now,
		updateTime: now,
	}
	return nil
}

func (s *MemoryStore) update(path, id string, patch map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	e, ok := s.collections[path][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
	}
	normalized, err := normalize(patch)
	if err != nil {
		return err
	}
	merged := copyFields(e.fields)
	for k, v := range normalized {
		merged[k] = v
	}
	e.fields = merged
	e.updateTime = s.now()
	return nil
}

func (s *MemoryStore) delete(path, id string) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	delete(s.collections[path], id)
	return nil
}

// snapshot はロールバック用にコレクション全体を複製する。
func (s *MemoryStore) snapshot() map[string]map[string]*memoryEntry {
	out := make(map[string]map[string]*memoryEntry, len(s.collections))
	for path, coll := range s.collections {
		c := make(map[string]*memoryEntry, len(coll))
		for id, e := range coll {
			dup := *e
			dup.fields = copyFields(e.fields)
			c[id] = &dup
		}
		out[path] = c
	}
	return out
}

// memoryTx はロック取得済みのMemoryStoreを操作するTx実装。
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) Get(ctx context.Context, path, id string) (*Document, error) {
	return t.store.get(path, id)
}

func (t *memoryTx) Set(ctx context.Context, path, id string, fields map[string]any) error {
	return t.store.set(path, id, fields)
}

func (t *memoryTx) Update(ctx context.Context, path, id string, patch map[string]any) error {
	return t.store.update(path, id, patch)
}

func (t *memoryTx) Delete(ctx context.Context, path, id string) error {
	return t.store.delete(path, id)
}

func toDocument(path, id string, e *memoryEntry) *Document {
	return &Document{
		Path:       path,
		ID:         id,
		Fields:     copyFields(e.fields),
		CreateTime: e.createTime,
		UpdateTime: e.updateTime,
	}
}

// copyFields はトップレベルを複製する。値はnormalize済みのため、
// ネストしたスライスやマップも合わせて複製する。
func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func normalizeValue(v any) (any, error) {
	m, err := FieldsOf(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
var _ Tx = (*memoryTx)(nil)
