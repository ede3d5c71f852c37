package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
)

// DocUserRepo はドキュメントストアを使用したユーザーリポジトリ。
// アカウントとidentityの検索もあわせて提供する。
type DocUserRepo struct {
	store docstore.Store
}

// NewDocUserRepo はDocUserRepoを生成する。
func NewDocUserRepo(store docstore.Store) *DocUserRepo {
	return &DocUserRepo{store: store}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *DocUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.store.Get(ctx, model.UsersPath, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeUser(doc)
}

// List は全ユーザーを作成順に返す。
func (r *DocUserRepo) List(ctx context.Context) ([]*model.User, error) {
	docs, err := r.store.List(ctx, model.UsersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*model.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// Update はプロフィールのフィールドを部分更新する。
func (r *DocUserRepo) Update(ctx context.Context, id string, patch map[string]any) error {
	if err := r.store.Update(ctx, model.UsersPath, id, patch); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// TouchLastLogin は最終ログイン日時を更新する。
func (r *DocUserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.Update(ctx, id, map[string]any{"lastLogin": at.UTC()})
}

// Create はプロフィールを作成する。
func (r *DocUserRepo) Create(ctx context.Context, user *model.User) error {
	fields, err := docstore.FieldsOf(user)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, model.UsersPath, user.ID, fields); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *DocUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	userFields, err := docstore.FieldsOf(user)
	if err != nil {
		return err
	}
	identityFields, err := docstore.FieldsOf(identity)
	if err != nil {
		return err
	}

	err = r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, model.UsersPath, user.ID, userFields); err != nil {
			return err
		}
		return tx.Set(ctx, identitiesPath, identity.Key(), identityFields)
	})
	if err != nil {
		return fmt.Errorf("failed to create user with identity: %w", err)
	}
	return nil
}

// CreateWithAccount はユーザーとパスワードアカウントを同一トランザクションで作成する。
func (r *DocUserRepo) CreateWithAccount(ctx context.Context, user *model.User, account *model.Account) error {
	userFields, err := docstore.FieldsOf(user)
	if err != nil {
		return err
	}
	accountFields, err := docstore.FieldsOf(account)
	if err != nil {
		return err
	}
	key := accountKey(account.Email)

	err = r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		existing, err := tx.Get(ctx, accountsPath, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAccountExists
		}
		if err := tx.Set(ctx, accountsPath, key, accountFields); err != nil {
			return err
		}
		return tx.Set(ctx, model.UsersPath, user.ID, userFields)
	})
	if err != nil {
		return fmt.Errorf("failed to create user with account: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでアカウントを検索する。大文字小文字は区別しない。
func (r *DocUserRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	doc, err := r.store.Get(ctx, accountsPath, accountKey(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var a model.Account
	if err := doc.DataTo(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
func (r *DocUserRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	key := (&model.Identity{Provider: provider, ProviderUserID: providerUserID}).Key()
	doc, err := r.store.Get(ctx, identitiesPath, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var ident model.Identity
	if err := doc.DataTo(&ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// accountKey はメールアドレスを正規化してドキュメントIDにする。
func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func decodeUser(doc *docstore.Document) (*model.User, error) {
	var u model.User
	if err := doc.DataTo(&u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		u.ID = doc.ID
	}
	u.ApplyDefaults()
	return &u, nil
}

// compile-time interface check
var _ UserRepository = (*DocUserRepo)(nil)
var _ AccountRepository = (*DocUserRepo)(nil)
var _ IdentityRepository = (*DocUserRepo)(nil)
