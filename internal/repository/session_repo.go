package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
)

// DocSessionRepo はドキュメントストアを使用したセッションリポジトリ。
type DocSessionRepo struct {
	store docstore.Store
	now   func() time.Time
}

// NewDocSessionRepo はDocSessionRepoを生成する。
func NewDocSessionRepo(store docstore.Store) *DocSessionRepo {
	return &DocSessionRepo{store: store, now: time.Now}
}

// Create はセッションを作成する。
func (r *DocSessionRepo) Create(ctx context.Context, session *model.Session) error {
	fields, err := docstore.FieldsOf(session)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, sessionsPath, session.ID, fields); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *DocSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	doc, err := r.store.Get(ctx, sessionsPath, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	var s model.Session
	if err := doc.DataTo(&s); err != nil {
		return nil, err
	}
	if s.Expired(r.now()) {
		return nil, nil
	}
	return &s, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *DocSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, sessionsPath, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *DocSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	docs, err := r.store.List(ctx, sessionsPath, docstore.Where("userId", userID))
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}
	for _, doc := range docs {
		if err := r.store.Delete(ctx, sessionsPath, doc.ID); err != nil {
			return fmt.Errorf("failed to delete user sessions: %w", err)
		}
	}
	return nil
}

// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
func (r *DocSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	docs, err := r.store.List(ctx, sessionsPath)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	deleted := 0
	for _, doc := range docs {
		var s model.Session
		if err := doc.DataTo(&s); err != nil {
			return deleted, err
		}
		if !s.Expired(now) {
			continue
		}
		if err := r.store.Delete(ctx, sessionsPath, doc.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete expired session: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// compile-time interface check
var _ SessionRepository = (*DocSessionRepo)(nil)
