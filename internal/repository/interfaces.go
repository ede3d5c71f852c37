// Package repository はデータ永続化のインターフェースを定義する。
// 実装はすべてdocstore.Store上に構築し、バックエンドに依存しない。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/codersmeet/internal/model"
)

// ErrAccountExists は同一メールアドレスのアカウントが既に存在する場合に返される。
var ErrAccountExists = errors.New("account already exists")

// コレクションパス
const (
	accountsPath   = "accounts"
	identitiesPath = "identities"
	sessionsPath   = "sessions"
)

// UserRepository はユーザープロフィールの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// List は全ユーザーを返す。
	List(ctx context.Context) ([]*model.User, error)

	// Update はプロフィールのフィールドを部分更新する。
	Update(ctx context.Context, id string, patch map[string]any) error

	// Create はプロフィールを作成する。既存のドキュメントは上書きする。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// CreateWithAccount はユーザーとパスワードアカウントを同一トランザクションで作成する。
	// 同一メールアドレスのアカウントが存在する場合はErrAccountExistsを返す。
	CreateWithAccount(ctx context.Context, user *model.User, account *model.Account) error

	// TouchLastLogin は最終ログイン日時を更新する。
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// AccountRepository はパスワードアカウントの永続化インターフェース。
type AccountRepository interface {
	// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// NotificationRepository は通知の永続化インターフェース。
type NotificationRepository interface {
	// ListByUser はユーザーの通知を新しい順に返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Notification, error)
	// Create は通知を作成する。IDが空の場合は採番する。
	Create(ctx context.Context, userID string, n *model.Notification) error
	// MarkAllRead は未読の通知をすべて既読にし、更新件数を返す。
	MarkAllRead(ctx context.Context, userID string) (int, error)
}
