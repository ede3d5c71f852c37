package listview

import (
	"context"
	"fmt"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
)

// DocumentLister はコレクションのスナップショットを返す。
type DocumentLister interface {
	ListDocuments(ctx context.Context, path string, filters ...docstore.Filter) ([]*docstore.Document, error)
}

// Loader は一覧のソースを1回読み込む。
type Loader[T any] func(ctx context.Context) ([]T, error)

// defaulted はApplyDefaultsを持つレコード型の制約。
type defaulted[T any] interface {
	*T
	ApplyDefaults()
}

// decodeAll はドキュメントを型付きレコードに変換し、デフォルト値を補う。
// IDが欠損している場合はドキュメントIDを使う。
func decodeAll[T any, P defaulted[T]](docs []*docstore.Document, setID func(P, string)) ([]P, error) {
	out := make([]P, 0, len(docs))
	for _, doc := range docs {
		var v T
		p := P(&v)
		if err := doc.DataTo(p); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", doc.Path, doc.ID, err)
		}
		setID(p, doc.ID)
		p.ApplyDefaults()
		out = append(out, p)
	}
	return out, nil
}

// PublicPosts は公開投稿のみを読み込むLoaderを返す。
func PublicPosts(lister DocumentLister) Loader[*model.Post] {
	return func(ctx context.Context) ([]*model.Post, error) {
		return loadPosts(ctx, lister, false)
	}
}

// PostsBy はauthorIDの投稿を読み込むLoaderを返す。
// includePrivateがfalseの場合は公開投稿のみとする。
func PostsBy(lister DocumentLister, authorID string, includePrivate bool) Loader[*model.Post] {
	return func(ctx context.Context) ([]*model.Post, error) {
		return loadPosts(ctx, lister, includePrivate, docstore.Where("author", authorID))
	}
}

func loadPosts(ctx context.Context, lister DocumentLister, includePrivate bool, filters ...docstore.Filter) ([]*model.Post, error) {
	docs, err := lister.ListDocuments(ctx, model.CollectionPath(model.KindPost, ""), filters...)
	if err != nil {
		return nil, err
	}
	posts, err := decodeAll(docs, func(p *model.Post, id string) {
		if p.ID == "" {
			p.ID = id
		}
	})
	if err != nil {
		return nil, err
	}
	if includePrivate {
		return posts, nil
	}
	public := posts[:0]
	for _, p := range posts {
		if p.Visibility == model.VisibilityPublic {
			public = append(public, p)
		}
	}
	return public, nil
}

// Projects はプロジェクトを読み込むLoaderを返す。
func Projects(lister DocumentLister) Loader[*model.Project] {
	return projectsWhere(lister)
}

// ProjectsBy はauthorIDのプロジェクトを読み込むLoaderを返す。
func ProjectsBy(lister DocumentLister, authorID string) Loader[*model.Project] {
	return projectsWhere(lister, docstore.Where("author", authorID))
}

func projectsWhere(lister DocumentLister, filters ...docstore.Filter) Loader[*model.Project] {
	return func(ctx context.Context) ([]*model.Project, error) {
		docs, err := lister.ListDocuments(ctx, model.CollectionPath(model.KindProject, ""), filters...)
		if err != nil {
			return nil, err
		}
		return decodeAll(docs, func(p *model.Project, id string) {
			if p.ID == "" {
				p.ID = id
			}
		})
	}
}

// Snippets はownerIDのスニペットを読み込むLoaderを返す。
func Snippets(lister DocumentLister, ownerID string) Loader[*model.Snippet] {
	return func(ctx context.Context) ([]*model.Snippet, error) {
		docs, err := lister.ListDocuments(ctx, model.CollectionPath(model.KindSnippet, ownerID))
		if err != nil {
			return nil, err
		}
		return decodeAll(docs, func(s *model.Snippet, id string) {
			if s.ID == "" {
				s.ID = id
			}
		})
	}
}

// Blogs はownerIDのブログ記事を読み込むLoaderを返す。
func Blogs(lister DocumentLister, ownerID string) Loader[*model.Blog] {
	return func(ctx context.Context) ([]*model.Blog, error) {
		docs, err := lister.ListDocuments(ctx, model.CollectionPath(model.KindBlog, ownerID))
		if err != nil {
			return nil, err
		}
		return decodeAll(docs, func(b *model.Blog, id string) {
			if b.ID == "" {
				b.ID = id
			}
		})
	}
}

// Developers はユーザー一覧を読み込むLoaderを返す。
func Developers(lister DocumentLister) Loader[*model.User] {
	return func(ctx context.Context) ([]*model.User, error) {
		docs, err := lister.ListDocuments(ctx, model.UsersPath)
		if err != nil {
			return nil, err
		}
		return decodeAll(docs, func(u *model.User, id string) {
			if u.ID == "" {
				u.ID = id
			}
		})
	}
}
