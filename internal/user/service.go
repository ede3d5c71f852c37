// Package user はプロフィールの閲覧・更新と開発者一覧を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/codersmeet/internal/github"
	"github.com/hitoshi/codersmeet/internal/listview"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/repository"
)

// プロフィール項目の上限
const (
	maxDisplayNameLength = 50
	maxBioLength         = 500
	maxSkills            = 30
)

// LinkValidator はプロフィールのリンクURLを検証する。
type LinkValidator interface {
	ValidateURL(rawURL string) error
}

// ProfilePatch はプロフィールの部分更新内容。nilのフィールドは変更しない。
type ProfilePatch struct {
	DisplayName *string  `json:"displayName"`
	Bio         *string  `json:"bio"`
	GitHub      *string  `json:"github"`
	Website     *string  `json:"website"`
	Skills      []string `json:"skills"`
}

// Service はプロフィールのサービス層。
type Service struct {
	userRepo repository.UserRepository
	links    LinkValidator
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, links LinkValidator) *Service {
	return &Service{
		userRepo: userRepo,
		links:    links,
		now:      time.Now,
	}
}

// GetProfile は指定ユーザーのプロフィールを返す。存在しない場合はnilを返す。
func (s *Service) GetProfile(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	return u, nil
}

// UpdateProfile は本人のプロフィールを部分更新し、更新後のプロフィールを返す。
func (s *Service) UpdateProfile(ctx context.Context, viewerID, id string, patch ProfilePatch) (*model.User, error) {
	// 1. 本人確認
	if viewerID == "" {
		return nil, model.NewUnauthorizedError()
	}
	if viewerID != id {
		return nil, model.NewForbiddenError("他のユーザーのプロフィールは編集できません")
	}

	// 2. 入力検証と更新内容の組み立て
	fields, err := s.buildPatch(patch)
	if err != nil {
		return nil, err
	}

	// 3. 存在確認
	current, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	if current == nil {
		return nil, model.NewDocumentMissingError(model.UsersPath, id)
	}
	if len(fields) == 0 {
		return current, nil
	}

	// 4. 更新
	if err := s.userRepo.Update(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("failed to update profile %s: %w", id, err)
	}

	slog.Info("profile updated",
		slog.String("user_id", id),
		slog.Int("fields", len(fields)),
	)
	return s.GetProfile(ctx, id)
}

func (s *Service) buildPatch(patch ProfilePatch) (map[string]any, error) {
	fields := map[string]any{}

	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		if name == "" {
			return nil, model.NewValidationError("displayName")
		}
		if len([]rune(name)) > maxDisplayNameLength {
			return nil, model.NewInvalidInputError("displayName is too long")
		}
		fields["displayName"] = name
	}
	if patch.Bio != nil {
		bio := strings.TrimSpace(*patch.Bio)
		if len([]rune(bio)) > maxBioLength {
			return nil, model.NewInvalidInputError("bio is too long")
		}
		fields["bio"] = bio
	}
	for key, link := range map[string]*string{"github": patch.GitHub, "website": patch.Website} {
		if link == nil {
			continue
		}
		v := strings.TrimSpace(*link)
		if v != "" && s.links != nil {
			if err := s.links.ValidateURL(v); err != nil {
				return nil, model.NewInvalidURLError(err.Error())
			}
		}
		fields[key] = v
	}
	if patch.Skills != nil {
		skills := normalizeSkills(patch.Skills)
		if len(skills) > maxSkills {
			return nil, model.NewInvalidInputError("too many skills")
		}
		fields["skills"] = skills
	}
	return fields, nil
}

// normalizeSkills は前後の空白を除去し、空要素と重複を取り除く。
func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, skill := range in {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, skill)
	}
	return out
}

// ConnectGitHub はGitHubのユーザー名をプロフィールに紐付ける。
func (s *Service) ConnectGitHub(ctx context.Context, uid, username string) (*model.User, error) {
	if uid == "" {
		return nil, model.NewUnauthorizedError()
	}
	username = strings.TrimSpace(username)
	if !github.ValidUsername(username) {
		return nil, model.NewInvalidInputError("invalid GitHub username")
	}

	current, err := s.userRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", uid, err)
	}
	if current == nil {
		return nil, model.NewDocumentMissingError(model.UsersPath, uid)
	}

	patch := map[string]any{"githubUsername": username}
	if current.GitHub == "" {
		patch["github"] = "https://github.com/" + username
	}
	if err := s.userRepo.Update(ctx, uid, patch); err != nil {
		return nil, fmt.Errorf("failed to connect GitHub for %s: %w", uid, err)
	}

	slog.Info("GitHub account connected",
		slog.String("user_id", uid),
		slog.String("github_username", username),
	)
	return s.GetProfile(ctx, uid)
}

// Developers は開発者一覧を絞り込み・並び替えして返す。
func (s *Service) Developers(ctx context.Context, state listview.FilterState) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list developers: %w", err)
	}
	return listview.Derive(users, listview.DeveloperEntry, state, s.now()), nil
}
