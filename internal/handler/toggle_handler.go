package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/toggle"
)

// MembershipToggler はいいね・ブックマークの切り替えを行う。
type MembershipToggler interface {
	ToggleLocal(ctx context.Context, local *toggle.LocalView, ref model.ItemRef, userID string) (toggle.Result, error)
}

// FollowToggler はフォローの切り替えとフォロー関係の一覧取得を行う。
type FollowToggler interface {
	Toggle(ctx context.Context, followerID, targetID string) (toggle.FollowResult, error)
	IsFollowing(ctx context.Context, followerID, targetID string) (bool, error)
	Followers(ctx context.Context, uid string) ([]model.FollowEdge, error)
	Following(ctx context.Context, uid string) ([]model.FollowEdge, error)
}

// ToggleHandler はいいね・ブックマーク・フォローのHTTPハンドラー。
type ToggleHandler struct {
	likes     MembershipToggler
	bookmarks MembershipToggler
	follows   FollowToggler
}

// NewToggleHandler はToggleHandlerを生成する。
func NewToggleHandler(likes, bookmarks MembershipToggler, follows FollowToggler) *ToggleHandler {
	return &ToggleHandler{
		likes:     likes,
		bookmarks: bookmarks,
		follows:   follows,
	}
}

// membershipResponse はいいね・ブックマーク切り替えのAPIレスポンス。
type membershipResponse struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// followResponse はフォロー切り替えのAPIレスポンス。
type followResponse struct {
	Following bool `json:"following"`
	Followers int  `json:"followers"`
}

// itemRefFromRequest はURLから対象コンテンツの参照を組み立てる。
// {collection}は種別の複数形（posts, projects, snippets, blogs）。
// snippetとblogはownerクエリで作成者を指定する。
func itemRefFromRequest(r *http.Request) (model.ItemRef, error) {
	collection := chi.URLParam(r, "collection")
	kind, ok := model.ParseKind(strings.TrimSuffix(collection, "s"))
	if !ok {
		return model.ItemRef{}, model.NewUnknownKindError(collection)
	}
	ref := model.ItemRef{Kind: kind, ID: chi.URLParam(r, "id")}
	if kind == model.KindSnippet || kind == model.KindBlog {
		ref.OwnerID = r.URL.Query().Get("owner")
		if ref.OwnerID == "" {
			return model.ItemRef{}, model.NewValidationError("owner")
		}
	}
	return ref, nil
}

// Like はいいねを切り替える。
// POST /api/{collection}/{id}/like
func (h *ToggleHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggleMembership(w, r, h.likes)
}

// Bookmark はブックマークを切り替える。
// POST /api/{collection}/{id}/bookmark
func (h *ToggleHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	h.toggleMembership(w, r, h.bookmarks)
}

func (h *ToggleHandler) toggleMembership(w http.ResponseWriter, r *http.Request, toggler MembershipToggler) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ref, err := itemRefFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 表示状態はこのリクエスト限りで破棄する
	local := toggle.NewLocalView()
	result, err := toggler.ToggleLocal(r.Context(), local, ref, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipResponse{
		Active: result.View.Active,
		Count:  result.View.Count,
	})
}

// Follow はフォロー状態を切り替える。
// POST /api/users/{id}/follow
func (h *ToggleHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := h.follows.Toggle(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followResponse{
		Following: result.Following,
		Followers: result.Followers,
	})
}

// Followers はユーザーのフォロワー一覧を返す。
// GET /api/users/{id}/followers
func (h *ToggleHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.writeEdges(w, r, h.follows.Followers)
}

// Following はユーザーがフォローしている一覧を返す。
// GET /api/users/{id}/following
func (h *ToggleHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.writeEdges(w, r, h.follows.Following)
}

func (h *ToggleHandler) writeEdges(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, uid string) ([]model.FollowEdge, error)) {
	edges, err := list(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": edges,
		"total": len(edges),
	})
}
