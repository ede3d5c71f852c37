package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/codersmeet/internal/github"
	"github.com/hitoshi/codersmeet/internal/model"
)

// GitHubClientInterface はGitHubブラウザーが必要とするクライアントインターフェース。
type GitHubClientInterface interface {
	Profile(ctx context.Context, username string) (*github.Profile, error)
	Repositories(ctx context.Context, username, sort string) ([]github.Repository, error)
	ActivityFeed(ctx context.Context, username string) ([]github.Activity, error)
}

// GitHubHandler はGitHubのプロフィール・リポジトリ・アクティビティを返すHTTPハンドラー。
type GitHubHandler struct {
	client GitHubClientInterface
}

// NewGitHubHandler はGitHubHandlerを生成する。
func NewGitHubHandler(client GitHubClientInterface) *GitHubHandler {
	return &GitHubHandler{client: client}
}

// usernameParam はURLのユーザー名を検証して返す。
func usernameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if !github.ValidUsername(username) {
		handleServiceError(w, model.NewValidationError("username"))
		return "", false
	}
	return username, true
}

// upstreamError はGitHub呼び出しの失敗をログに記録し、NETWORK_ERRORを返す。
func upstreamError(w http.ResponseWriter, op, username string, err error) {
	slog.Error("github request failed",
		slog.String("op", op),
		slog.String("username", username),
		slog.String("error", err.Error()),
	)
	handleServiceError(w, model.NewNetworkError())
}

// Profile はGitHubユーザーのプロフィールを返す。
// GET /api/github/{username}
func (h *GitHubHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(w, r)
	if !ok {
		return
	}

	profile, err := h.client.Profile(r.Context(), username)
	if err != nil {
		upstreamError(w, "profile", username, err)
		return
	}
	if profile == nil {
		handleServiceError(w, model.NewDocumentMissingError("github", username))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Repositories はGitHubユーザーの公開リポジトリを返す。
// GET /api/github/{username}/repos?q=&sort=
// sortはupdated, stars, forks, nameのいずれか。
func (h *GitHubHandler) Repositories(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	sortKey := q.Get("sort")

	// 名前順はAPI側でも並べ、それ以外は更新順で取得してからローカルで並べ替える
	remote := "updated"
	if sortKey == github.SortName {
		remote = "full_name"
	}

	repos, err := h.client.Repositories(r.Context(), username, remote)
	if err != nil {
		upstreamError(w, "repositories", username, err)
		return
	}
	if repos == nil {
		handleServiceError(w, model.NewDocumentMissingError("github", username))
		return
	}

	filtered := github.FilterRepositories(repos, q.Get("q"), sortKey)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": filtered,
		"total": len(filtered),
	})
}

// Activity はGitHubユーザーの公開アクティビティを返す。
// GET /api/github/{username}/activity
func (h *GitHubHandler) Activity(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(w, r)
	if !ok {
		return
	}

	activities, err := h.client.ActivityFeed(r.Context(), username)
	if err != nil {
		upstreamError(w, "activity", username, err)
		return
	}
	if activities == nil {
		activities = []github.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": activities,
		"total": len(activities),
	})
}
