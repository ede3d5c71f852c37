package listview

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Controller は一覧のソースと絞り込み条件を保持し、表示項目を導出する。
// 表示項目は常にDerive(source, state)と一致する。
type Controller[T any] struct {
	mu      sync.Mutex
	load    Loader[T]
	entryOf func(T) Entry
	now     func() time.Time

	source  []T
	state   FilterState
	visible []T
	loaded  bool
}

// NewController はControllerを生成する。
func NewController[T any](load Loader[T], entryOf func(T) Entry, initial FilterState) *Controller[T] {
	return &Controller[T]{
		load:    load,
		entryOf: entryOf,
		now:     time.Now,
		state:   initial.clone(),
		visible: []T{},
	}
}

// Load はソースを1回読み込み、表示項目を再計算する。
// 失敗した場合はソースを変更しない。
func (c *Controller[T]) Load(ctx context.Context) error {
	items, err := c.load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = items
	c.loaded = true
	c.recompute()
	return nil
}

// SetSource はソースを置き換え、表示項目を再計算する。
func (c *Controller[T]) SetSource(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = slices.Clone(items)
	c.loaded = true
	c.recompute()
}

// SetFilter は絞り込み条件を更新し、表示項目を返す。
func (c *Controller[T]) SetFilter(reducers ...Reducer) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.Apply(reducers...)
	c.recompute()
	return slices.Clone(c.visible)
}

// VisibleItems は現在の表示項目を返す。
func (c *Controller[T]) VisibleItems() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.visible)
}

// Source は読み込み済みのソースを返す。
func (c *Controller[T]) Source() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.source)
}

// State は現在の絞り込み条件を返す。
func (c *Controller[T]) State() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Loaded はソースが読み込み済みかを返す。
func (c *Controller[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *Controller[T]) recompute() {
	c.visible = Derive(c.source, c.entryOf, c.state, c.now())
}
