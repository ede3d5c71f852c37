package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/codersmeet/internal/content"
	"github.com/hitoshi/codersmeet/internal/listview"
	"github.com/hitoshi/codersmeet/internal/middleware"
	"github.com/hitoshi/codersmeet/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	Logger         *slog.Logger
	HTTPMetrics    middleware.HTTPRecorder

	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	Profiles          session.ProfileLoader
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthGateway    AuthGateway
	SessionService SessionServiceInterface
	AuthMetrics    AuthRecorder
	AuthConfig     AuthHandlerConfig

	// 一覧
	Lister     listview.DocumentLister
	Developers DeveloperServiceInterface

	// 作成フォーム
	Forms        *content.Registry
	MaxImageSize int64

	// 関係
	Likes     MembershipToggler
	Bookmarks MembershipToggler
	Follows   FollowToggler

	// プロフィール・通知・GitHub
	UserService         UserServiceInterface
	NotificationService NotificationServiceInterface
	GitHub              GitHubClientInterface

	// HTMLシェル
	Shell http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → Session → Logging → CSRF → RateLimit(General)
//
// 書き込み系のルートにはさらに RequireAuth → RateLimit(Write) を適用する。
// /health と /metrics はセッション解決の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := NewAuthHandler(deps.AuthGateway, deps.SessionService, deps.AuthMetrics, deps.AuthConfig)
	listingHandler := NewListingHandler(deps.Lister, deps.Developers)
	contentHandler := NewContentHandler(deps.Forms, deps.MaxImageSize)
	toggleHandler := NewToggleHandler(deps.Likes, deps.Bookmarks, deps.Follows)
	userHandler := NewUserHandler(deps.UserService, deps.Follows)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	githubHandler := NewGitHubHandler(deps.GitHub)

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver, deps.Profiles))
		r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPMetrics))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証ルート
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", authHandler.SignIn)
			r.Post("/signup", authHandler.SignUp)
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		// --- 認証不要の読み取り ---
		r.Get("/api/posts", listingHandler.ListPosts)
		r.Get("/api/projects", listingHandler.ListProjects)
		r.Get("/api/developers", listingHandler.ListDevelopers)
		r.Get("/api/home", listingHandler.Home)
		r.Get("/api/users/{id}", userHandler.GetProfile)
		r.Get("/api/users/{id}/followers", toggleHandler.Followers)
		r.Get("/api/users/{id}/following", toggleHandler.Following)
		r.Get("/api/users/{id}/posts", listingHandler.UserPosts)
		r.Get("/api/users/{id}/projects", listingHandler.UserProjects)
		r.Get("/api/users/{id}/snippets", listingHandler.UserSnippets)
		r.Get("/api/users/{id}/blogs", listingHandler.UserBlogs)

		r.Route("/api/github/{username}", func(r chi.Router) {
			r.Get("/", githubHandler.Profile)
			r.Get("/repos", githubHandler.Repositories)
			r.Get("/activity", githubHandler.Activity)
		})

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: RequireAuth → RateLimit(Write)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/api/notifications", notificationHandler.List)
			r.Get("/api/notifications/unread", notificationHandler.Unread)
			r.Post("/api/notifications/read", notificationHandler.MarkAllRead)

			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.WriteMiddleware())

				r.Post("/api/create/{type}", contentHandler.Create)
				r.Post("/api/{collection}/{id}/like", toggleHandler.Like)
				r.Post("/api/{collection}/{id}/bookmark", toggleHandler.Bookmark)
				r.Post("/api/users/{id}/follow", toggleHandler.Follow)
				r.Patch("/api/users/{id}", userHandler.UpdateProfile)
				r.Put("/api/users/me/github", userHandler.ConnectGitHub)
			})
		})

		// --- HTMLシェル ---
		if deps.Shell != nil {
			r.Method(http.MethodGet, "/*", deps.Shell)
		}
	})

	return r
}
