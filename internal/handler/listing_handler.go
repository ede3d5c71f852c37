package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/codersmeet/internal/content"
	"github.com/hitoshi/codersmeet/internal/listview"
	"github.com/hitoshi/codersmeet/internal/middleware"
	"github.com/hitoshi/codersmeet/internal/model"
)

// DeveloperServiceInterface は開発者一覧を返すサービスインターフェース。
type DeveloperServiceInterface interface {
	Developers(ctx context.Context, state listview.FilterState) ([]*model.User, error)
}

// ListingHandler はコンテンツ一覧のHTTPハンドラー。
// リクエストごとに一覧コントローラーを生成し、クエリの絞り込み条件を適用する。
type ListingHandler struct {
	lister     listview.DocumentLister
	developers DeveloperServiceInterface
}

// NewListingHandler はListingHandlerを生成する。
func NewListingHandler(lister listview.DocumentLister, developers DeveloperServiceInterface) *ListingHandler {
	return &ListingHandler{
		lister:     lister,
		developers: developers,
	}
}

// listResponse は一覧のAPIレスポンス。
type listResponse[T any] struct {
	Items   []T                 `json:"items"`
	Total   int                 `json:"total"`
	Filter  filterStateResponse `json:"filter"`
	Options []string            `json:"options,omitempty"`
}

type filterStateResponse struct {
	Search   string   `json:"search"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Sort     string   `json:"sort"`
	Window   string   `json:"window"`
}

func toFilterStateResponse(s listview.FilterState) filterStateResponse {
	return filterStateResponse{
		Search:   s.SearchText,
		Category: s.Category,
		Tags:     s.Tags,
		Sort:     string(s.Sort),
		Window:   string(s.Window),
	}
}

// filterStateFromQuery はクエリパラメータから絞り込み条件を生成する。
// q, category, tags（カンマ区切り）, sort, window を受け付ける。
func filterStateFromQuery(q url.Values, defaultSort listview.SortKey) (listview.FilterState, error) {
	reducers := []listview.Reducer{
		listview.SetSearch(q.Get("q")),
		listview.SetCategory(q.Get("category")),
		listview.SetTags(content.SplitList(q.Get("tags"))),
		listview.SetSort(defaultSort),
	}

	if v := q.Get("sort"); v != "" {
		key, ok := listview.ParseSortKey(v)
		if !ok {
			return listview.FilterState{}, model.NewInvalidInputError("sort: " + v)
		}
		reducers = append(reducers, listview.SetSort(key))
	}
	if v := q.Get("window"); v != "" {
		window, ok := listview.ParseWindow(v)
		if !ok {
			return listview.FilterState{}, model.NewInvalidInputError("window: " + v)
		}
		reducers = append(reducers, listview.SetWindow(window))
	}

	return listview.DefaultState().Apply(reducers...), nil
}

// loadVisible はコントローラーでソースを読み込み、表示項目を返す。
func loadVisible[T any](ctx context.Context, load listview.Loader[T], entryOf func(T) listview.Entry, state listview.FilterState) ([]T, error) {
	ctrl := listview.NewController(load, entryOf, state)
	if err := ctrl.Load(ctx); err != nil {
		return nil, err
	}
	return ctrl.VisibleItems(), nil
}

// ListPosts は公開投稿の一覧を返す。
// GET /api/posts?q=&category=&tags=&sort=&window=
func (h *ListingHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	state, err := filterStateFromQuery(r.URL.Query(), listview.SortNewest)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	posts, err := loadVisible(r.Context(), listview.PublicPosts(h.lister), listview.PostEntry, state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[*model.Post]{
		Items:   posts,
		Total:   len(posts),
		Filter:  toFilterStateResponse(state),
		Options: model.Categories,
	})
}

// ListProjects はプロジェクトの一覧を返す。
// GET /api/projects?q=&tags=&sort=
func (h *ListingHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	state, err := filterStateFromQuery(r.URL.Query(), listview.SortNewest)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projects, err := loadVisible(r.Context(), listview.Projects(h.lister), listview.ProjectEntry, state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[*model.Project]{
		Items:   projects,
		Total:   len(projects),
		Filter:  toFilterStateResponse(state),
		Options: model.ProjectTags,
	})
}

// ListDevelopers は開発者の一覧を返す。
// GET /api/developers?q=&tags=&sort=
func (h *ListingHandler) ListDevelopers(w http.ResponseWriter, r *http.Request) {
	state, err := filterStateFromQuery(r.URL.Query(), listview.SortFollowers)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	users, err := h.developers.Developers(r.Context(), state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[*model.User]{
		Items:  users,
		Total:  len(users),
		Filter: toFilterStateResponse(state),
	})
}

// homeResponse はホーム画面のAPIレスポンス。
type homeResponse struct {
	Posts      []*model.Post       `json:"posts"`
	Developers []*model.User       `json:"developers"`
	Snippets   []*model.Snippet    `json:"snippets"`
	Blogs      []*model.Blog       `json:"blogs"`
	Filter     filterStateResponse `json:"filter"`
}

// Home はホーム画面の投稿と開発者を返す。
// ログイン済みの場合は自分のスニペットとブログ記事も含める。
// GET /api/home?window=&sort=&q=&tags=
func (h *ListingHandler) Home(w http.ResponseWriter, r *http.Request) {
	state, err := filterStateFromQuery(r.URL.Query(), listview.SortNewest)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	ctx := r.Context()

	resp := homeResponse{
		Snippets: []*model.Snippet{},
		Blogs:    []*model.Blog{},
		Filter:   toFilterStateResponse(state),
	}

	resp.Posts, err = loadVisible(ctx, listview.PublicPosts(h.lister), listview.PostEntry, state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp.Developers, err = h.developers.Developers(ctx, listview.DefaultState().Apply(listview.SetSort(listview.SortFollowers)))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if userID, err := middleware.UserIDFromContext(ctx); err == nil {
		resp.Snippets, err = loadVisible(ctx, listview.Snippets(h.lister, userID), listview.SnippetEntry, state)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp.Blogs, err = loadVisible(ctx, listview.Blogs(h.lister, userID), listview.BlogEntry, state)
		if err != nil {
			handleServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeUserListing はユーザーのコンテンツ一覧を絞り込んで返す。
func writeUserListing[T any](w http.ResponseWriter, r *http.Request, load listview.Loader[T], entryOf func(T) listview.Entry) {
	state, err := filterStateFromQuery(r.URL.Query(), listview.SortNewest)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items, err := loadVisible(r.Context(), load, entryOf, state)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[T]{
		Items:  items,
		Total:  len(items),
		Filter: toFilterStateResponse(state),
	})
}

// UserPosts はユーザーの投稿一覧を返す。本人には非公開の投稿も含める。
// GET /api/users/{id}/posts
func (h *ListingHandler) UserPosts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	viewerID, _ := middleware.UserIDFromContext(r.Context())
	writeUserListing(w, r, listview.PostsBy(h.lister, id, viewerID == id), listview.PostEntry)
}

// UserProjects はユーザーのプロジェクト一覧を返す。
// GET /api/users/{id}/projects
func (h *ListingHandler) UserProjects(w http.ResponseWriter, r *http.Request) {
	writeUserListing(w, r, listview.ProjectsBy(h.lister, chi.URLParam(r, "id")), listview.ProjectEntry)
}

// UserSnippets はユーザーのスニペット一覧を返す。
// GET /api/users/{id}/snippets
func (h *ListingHandler) UserSnippets(w http.ResponseWriter, r *http.Request) {
	writeUserListing(w, r, listview.Snippets(h.lister, chi.URLParam(r, "id")), listview.SnippetEntry)
}

// UserBlogs はユーザーのブログ記事一覧を返す。
// GET /api/users/{id}/blogs
func (h *ListingHandler) UserBlogs(w http.ResponseWriter, r *http.Request) {
	writeUserListing(w, r, listview.Blogs(h.lister, chi.URLParam(r, "id")), listview.BlogEntry)
}
