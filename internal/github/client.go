// Package github はGitHubのプロフィール・リポジトリ・公開アクティビティの閲覧を提供する。
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	gh "github.com/google/go-github/github"
	"golang.org/x/oauth2"
)

// perPage はリポジトリ一覧の1ページあたりの件数。
const perPage = 100

// デフォルトのエンドポイント
const (
	defaultFeedBaseURL = "https://github.com"
)

// usernamePattern はGitHubのユーザー名規則（英数字と単一のハイフン、最大39文字）。
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9]|-[a-zA-Z0-9]){0,38}$`)

// ValidUsername はGitHubのユーザー名として有効かを返す。
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Profile はGitHubユーザーの公開プロフィール。
type Profile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatarUrl"`
	Bio         string    `json:"bio"`
	HTMLURL     string    `json:"htmlUrl"`
	Blog        string    `json:"blog"`
	Location    string    `json:"location"`
	Company     string    `json:"company"`
	PublicRepos int       `json:"publicRepos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Repository はGitHubリポジトリの概要。
type Repository struct {
	Name        string    `json:"name"`
	FullName    string    `json:"fullName"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"htmlUrl"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Fork        bool      `json:"fork"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	PushedAt    time.Time `json:"pushedAt"`
}

// Config はClientの設定。
type Config struct {
	Token string // 空の場合は未認証で呼び出す

	// テスト用にオーバーライド可能なURL
	APIBaseURL  string
	FeedBaseURL string
}

// Client はGitHub APIとアクティビティフィードのクライアント。
type Client struct {
	api         *gh.Client
	feedClient  *http.Client
	feedBaseURL string
}

// NewClient はClientを生成する。feedClientはアクティビティフィードの取得に使われる。
// トークンが設定されている場合、API呼び出しはoauth2の静的トークンで認証される。
func NewClient(config Config, feedClient *http.Client) (*Client, error) {
	var httpClient *http.Client
	if config.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}
	api := gh.NewClient(httpClient)

	if config.APIBaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(config.APIBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API base URL: %w", err)
		}
		api.BaseURL = base
	}

	feedBaseURL := config.FeedBaseURL
	if feedBaseURL == "" {
		feedBaseURL = defaultFeedBaseURL
	}
	if feedClient == nil {
		feedClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		api:         api,
		feedClient:  feedClient,
		feedBaseURL: strings.TrimSuffix(feedBaseURL, "/"),
	}, nil
}

// Profile はユーザーの公開プロフィールを取得する。存在しない場合はnilを返す。
func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	if !ValidUsername(username) {
		return nil, fmt.Errorf("invalid GitHub username: %q", username)
	}

	u, _, err := c.api.Users.Get(ctx, username)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GitHub user %s: %w", username, err)
	}

	return &Profile{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		AvatarURL:   u.GetAvatarURL(),
		Bio:         u.GetBio(),
		HTMLURL:     u.GetHTMLURL(),
		Blog:        u.GetBlog(),
		Location:    u.GetLocation(),
		Company:     u.GetCompany(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		CreatedAt:   u.GetCreatedAt().Time,
	}, nil
}

// Repositories はユーザーの公開リポジトリを取得する。ユーザーが存在しない場合はnilを返す。
// sortはupdated, created, pushed, full_nameのいずれかで、それ以外はupdatedとして扱う。
func (c *Client) Repositories(ctx context.Context, username, sort string) ([]Repository, error) {
	if !ValidUsername(username) {
		return nil, fmt.Errorf("invalid GitHub username: %q", username)
	}

	opts := &gh.RepositoryListOptions{
		Sort:        remoteSort(sort),
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	repos, _, err := c.api.Repositories.List(ctx, username, opts)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories of %s: %w", username, err)
	}

	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, Repository{
			Name:        r.GetName(),
			FullName:    r.GetFullName(),
			Description: r.GetDescription(),
			HTMLURL:     r.GetHTMLURL(),
			Language:    r.GetLanguage(),
			Stars:       r.GetStargazersCount(),
			Forks:       r.GetForksCount(),
			Fork:        r.GetFork(),
			CreatedAt:   r.GetCreatedAt().Time,
			UpdatedAt:   r.GetUpdatedAt().Time,
			PushedAt:    r.GetPushedAt().Time,
		})
	}
	return out, nil
}

func remoteSort(sort string) string {
	switch sort {
	case "created", "pushed", "full_name":
		return sort
	default:
		return "updated"
	}
}

func isNotFound(err error) bool {
	var respErr *gh.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}
