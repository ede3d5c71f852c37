// Package toggle はいいね・ブックマーク・フォローの切り替えを提供する。
// 書き込みはすべてトランザクション内の読み取り・変更・書き込みで行う。
package toggle

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
)

// SignInPath は未ログイン時のリダイレクト先。
const SignInPath = "/signin"

// Remote はトグル操作が使うリモートデータ操作。
type Remote interface {
	GetDocument(ctx context.Context, path, id string) (*docstore.Document, error)
	ListDocuments(ctx context.Context, path string, filters ...docstore.Filter) ([]*docstore.Document, error)
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error
}

// NotificationPusher は通知を追加する。
type NotificationPusher interface {
	Push(ctx context.Context, userID string, n *model.Notification) error
}

// Recorder はトグル操作のメトリクスを記録する。
type Recorder interface {
	RecordToggle(kind, relation string, added bool)
}

// pushBestEffort は通知を追加し、失敗してもログのみとする。
func pushBestEffort(ctx context.Context, pusher NotificationPusher, userID string, n *model.Notification) {
	if pusher == nil || userID == "" {
		return
	}
	if err := pusher.Push(ctx, userID, n); err != nil {
		slog.Warn("failed to push notification",
			slog.String("user_id", userID),
			slog.String("type", n.Type),
			slog.String("error", err.Error()),
		)
	}
}

// stringSlice はドキュメントのフィールド値を文字列スライスに変換する。
// 欠損や型違いの場合は空スライスを返す。
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string{}, vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// intValue はドキュメントのフィールド値を整数に変換する。欠損の場合は0。
func intValue(v any) int {
	switch vv := v.(type) {
	case int:
		return vv
	case int64:
		return int(vv)
	case float64:
		return int(vv)
	case json.Number:
		n, _ := vv.Int64()
		return int(n)
	default:
		return 0
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != s {
			out = append(out, item)
		}
	}
	return out
}
