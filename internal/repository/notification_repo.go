package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
)

// DocNotificationRepo はドキュメントストアを使用した通知リポジトリ。
type DocNotificationRepo struct {
	store docstore.Store
}

// NewDocNotificationRepo はDocNotificationRepoを生成する。
func NewDocNotificationRepo(store docstore.Store) *DocNotificationRepo {
	return &DocNotificationRepo{store: store}
}

// ListByUser はユーザーの通知を新しい順に返す。
func (r *DocNotificationRepo) ListByUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	docs, err := r.store.List(ctx, model.NotificationsPath(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]*model.Notification, 0, len(docs))
	for _, doc := range docs {
		var n model.Notification
		if err := doc.DataTo(&n); err != nil {
			return nil, err
		}
		if n.ID == "" {
			n.ID = doc.ID
		}
		out = append(out, &n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Create は通知を作成する。
func (r *DocNotificationRepo) Create(ctx context.Context, userID string, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	fields, err := docstore.FieldsOf(n)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, model.NotificationsPath(userID), n.ID, fields); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// MarkAllRead は未読の通知をすべて既読にし、更新件数を返す。
// 一覧取得後に削除された通知は件数に含めない。
func (r *DocNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	path := model.NotificationsPath(userID)

	docs, err := r.store.List(ctx, path, docstore.Where("read", false))
	if err != nil {
		return 0, fmt.Errorf("failed to list unread notifications: %w", err)
	}

	updated := 0
	for _, doc := range docs {
		err := r.store.Update(ctx, path, doc.ID, map[string]any{"read": true})
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, fmt.Errorf("failed to mark notification read: %w", err)
		}
		updated++
	}
	return updated, nil
}

// compile-time interface check
var _ NotificationRepository = (*DocNotificationRepo)(nil)
