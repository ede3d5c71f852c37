// Package notification はユーザーごとの通知一覧と既読管理を提供する。
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/repository"
)

// Service は通知に関するビジネスロジックを提供する。
type Service struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.NotificationRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List はユーザーの通知を新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Notification, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

// UnreadCount は未読の通知数を返す。
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return unread, nil
}

// MarkAllRead は全通知を既読にし、更新件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, model.NewUnauthorizedError()
	}
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return n, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	slog.Info("notifications marked read",
		slog.String("user_id", userID),
		slog.Int("count", n),
	)
	return n, nil
}

// Push はuserIDに未読の通知を追加する。自分自身の操作による通知は追加しない。
func (s *Service) Push(ctx context.Context, userID string, n *model.Notification) error {
	if userID == "" {
		return model.NewValidationError("userId")
	}
	if !validType(n.Type) {
		return model.NewValidationError("type")
	}
	if n.ActorID == userID {
		return nil
	}

	n.Read = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Create(ctx, userID, n); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

func validType(t string) bool {
	switch t {
	case model.NotificationFollow, model.NotificationLike, model.NotificationComment,
		model.NotificationProject, model.NotificationStar:
		return true
	}
	return false
}
