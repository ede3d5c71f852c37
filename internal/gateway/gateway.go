// Package gateway はリモートデータ（認証・ドキュメントストア・画像ホスティング）への統一窓口を提供する。
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/codersmeet/internal/auth"
	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/imagehost"
	"github.com/hitoshi/codersmeet/internal/model"
)

// Authenticator は認証プロバイダーのインターフェース。
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*model.Principal, error)
	AuthenticateWithProvider(ctx context.Context, params auth.CallbackParams) (*model.Principal, error)
	CreateAccount(ctx context.Context, email, password, displayName string) (*model.Principal, error)
}

// Gateway は認証・ドキュメント操作・画像アップロードを束ねる。
type Gateway struct {
	auth     Authenticator
	store    docstore.Store
	images   imagehost.Uploader
	notifier *AuthNotifier
}

// New はGatewayを生成する。imagesがnilの場合、画像アップロードは常に失敗扱いとなる。
func New(authenticator Authenticator, store docstore.Store, images imagehost.Uploader) *Gateway {
	return &Gateway{
		auth:     authenticator,
		store:    store,
		images:   images,
		notifier: NewAuthNotifier(),
	}
}

// --- 認証 ---

// Authenticate はメールアドレスとパスワードで認証し、成功時に認証状態の変化を通知する。
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*model.Principal, error) {
	p, err := g.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	g.notifier.Publish(p)
	return p, nil
}

// AuthenticateWithProvider は外部プロバイダーのコールバックを処理する。
func (g *Gateway) AuthenticateWithProvider(ctx context.Context, params auth.CallbackParams) (*model.Principal, error) {
	p, err := g.auth.AuthenticateWithProvider(ctx, params)
	if err != nil {
		return nil, err
	}
	g.notifier.Publish(p)
	return p, nil
}

// CreateAccount はアカウントとプロフィールを作成する。
func (g *Gateway) CreateAccount(ctx context.Context, email, password, displayName string) (*model.Principal, error) {
	p, err := g.auth.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	g.notifier.Publish(p)
	return p, nil
}

// SignOut はサインアウトを通知する。
func (g *Gateway) SignOut() {
	g.notifier.Publish(nil)
}

// OnAuthChange は認証状態の変化を購読する。
func (g *Gateway) OnAuthChange(cb AuthListener) (unsubscribe func()) {
	return g.notifier.OnAuthChange(cb)
}

// --- ドキュメント ---

// GetDocument はドキュメントを取得する。存在しない場合はnilを返す。
func (g *Gateway) GetDocument(ctx context.Context, path, id string) (*docstore.Document, error) {
	doc, err := g.store.Get(ctx, path, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", path, id, err)
	}
	return doc, nil
}

// ListDocuments はコレクションの現時点のスナップショットを返す。
func (g *Gateway) ListDocuments(ctx context.Context, path string, filters ...docstore.Filter) ([]*docstore.Document, error) {
	docs, err := g.store.List(ctx, path, filters...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", path, err)
	}
	return docs, nil
}

// WriteDocument はドキュメントを作成または上書きする。
func (g *Gateway) WriteDocument(ctx context.Context, path, id string, fields map[string]any) error {
	if err := g.store.Set(ctx, path, id, fields); err != nil {
		slog.Error("document write rejected",
			slog.String("path", path),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return model.NewWriteRejectedError(err.Error())
	}
	return nil
}

// UpdateDocument はドキュメントのフィールドを部分更新する。
func (g *Gateway) UpdateDocument(ctx context.Context, path, id string, patch map[string]any) error {
	err := g.store.Update(ctx, path, id, patch)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.NewDocumentMissingError(path, id)
	}
	if err != nil {
		slog.Error("document update rejected",
			slog.String("path", path),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return model.NewWriteRejectedError(err.Error())
	}
	return nil
}

// DeleteDocument はドキュメントを削除する。
func (g *Gateway) DeleteDocument(ctx context.Context, path, id string) error {
	if err := g.store.Delete(ctx, path, id); err != nil {
		return model.NewWriteRejectedError(err.Error())
	}
	return nil
}

// RunTransaction はfnをトランザクション内で実行する。
// fnがエラーを返した場合、fn内の書き込みはすべて破棄される。
func (g *Gateway) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return g.store.RunTransaction(ctx, fn)
}

// --- 画像 ---

// UploadImage は画像をアップロードし、URLと成否を返す。
// 失敗時はエラーをログに記録し、("", false)を返す。
func (g *Gateway) UploadImage(ctx context.Context, data []byte) (string, bool) {
	if g.images == nil {
		slog.Warn("image upload skipped: no image host configured")
		return "", false
	}
	url, err := g.images.Upload(ctx, data, "")
	if err != nil {
		slog.Error("image upload failed", slog.String("error", err.Error()))
		return "", false
	}
	return url, true
}
