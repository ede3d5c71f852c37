package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/codersmeet/internal/middleware"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/user"
)

// UserServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, viewerID, id string, patch user.ProfilePatch) (*model.User, error)
	ConnectGitHub(ctx context.Context, uid, username string) (*model.User, error)
}

// UserHandler はプロフィールのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	follows FollowToggler
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, follows FollowToggler) *UserHandler {
	return &UserHandler{
		service: service,
		follows: follows,
	}
}

// profileResponse はプロフィールのAPIレスポンス。
// Followingは閲覧者が対象をフォロー中かを表す（未ログイン時は常にfalse）。
type profileResponse struct {
	*model.User
	IsOwner   bool `json:"isOwner"`
	Following bool `json:"isFollowing"`
}

type connectGitHubRequest struct {
	Username string `json:"username"`
}

// GetProfile はプロフィールを返す。
// GET /api/users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profile == nil {
		handleServiceError(w, model.NewDocumentMissingError(model.UsersPath, id))
		return
	}

	resp := profileResponse{User: profile}
	if viewerID, err := middleware.UserIDFromContext(r.Context()); err == nil {
		resp.IsOwner = viewerID == id
		following, err := h.follows.IsFollowing(r.Context(), viewerID, id)
		if err != nil {
			// フォロー状態は補助情報のため、取得失敗時はfalseとして返す
			slog.Warn("failed to check follow state",
				slog.String("user_id", viewerID),
				slog.String("target_id", id),
				slog.String("error", err.Error()),
			)
		}
		resp.Following = following
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfile は本人のプロフィールを部分更新する。
// PATCH /api/users/{id}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var patch user.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), viewerID, chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ConnectGitHub はGitHubのユーザー名をプロフィールに連携する。
// PUT /api/users/me/github
func (h *UserHandler) ConnectGitHub(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req connectGitHubRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.ConnectGitHub(r.Context(), userID, req.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
