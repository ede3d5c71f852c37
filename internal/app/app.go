package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/codersmeet/internal/auth"
	"github.com/hitoshi/codersmeet/internal/config"
	"github.com/hitoshi/codersmeet/internal/content"
	"github.com/hitoshi/codersmeet/internal/database"
	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/gateway"
	"github.com/hitoshi/codersmeet/internal/github"
	"github.com/hitoshi/codersmeet/internal/handler"
	"github.com/hitoshi/codersmeet/internal/imagehost"
	"github.com/hitoshi/codersmeet/internal/logger"
	"github.com/hitoshi/codersmeet/internal/metrics"
	"github.com/hitoshi/codersmeet/internal/middleware"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/notification"
	"github.com/hitoshi/codersmeet/internal/repository"
	"github.com/hitoshi/codersmeet/internal/route"
	"github.com/hitoshi/codersmeet/internal/security"
	"github.com/hitoshi/codersmeet/internal/toggle"
	"github.com/hitoshi/codersmeet/internal/user"
	"github.com/hitoshi/codersmeet/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("docstore", cfg.DocstoreBackend),
		slog.String("images", cfg.ImageBackend),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// backend は起動時に開いたドキュメントストアと、その疎通確認。
type backend struct {
	store  docstore.Store
	health handler.HealthChecker
}

// openBackend は設定に応じたドキュメントストアを開く。
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.DocstoreBackend {
	case config.BackendPostgres:
		db, err := database.Connect(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
		if err != nil {
			return nil, err
		}
		slog.Info("database connection established")
		return &backend{store: docstore.NewPostgresStore(db), health: db}, nil

	case config.BackendFirestore:
		store, err := docstore.NewFirestoreStore(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, fmt.Errorf("failed to open firestore: %w", err)
		}
		slog.Info("firestore client established", slog.String("project", cfg.FirestoreProject))
		return &backend{store: store, health: storePinger{store: store}}, nil

	case config.BackendMemory:
		slog.Warn("using in-memory document store; data is lost on restart")
		store := docstore.NewMemoryStore()
		return &backend{store: store, health: storePinger{store: store}}, nil

	default:
		return nil, fmt.Errorf("unsupported docstore backend: %q", cfg.DocstoreBackend)
	}
}

// storePinger はドキュメントの読み取りで疎通を確認する。
type storePinger struct {
	store docstore.Store
}

func (p storePinger) PingContext(ctx context.Context) error {
	_, err := p.store.Get(ctx, model.UsersPath, "_health")
	return err
}

// openImageUploader は設定に応じた画像アップローダーを生成する。
// 画像ホスティングが無効な場合はnilを返す。
func openImageUploader(ctx context.Context, cfg *config.Config) (imagehost.Uploader, func(), error) {
	switch cfg.ImageBackend {
	case config.ImageCloudinary:
		uploader := imagehost.NewCloudinaryUploader(imagehost.CloudinaryConfig{
			CloudName:    cfg.CloudinaryCloudName,
			UploadPreset: cfg.CloudinaryUploadPreset,
			MaxSize:      cfg.UploadMaxSize,
		}, &http.Client{Timeout: 30 * time.Second})
		return uploader, func() {}, nil

	case config.ImageGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Warn("failed to close storage client", slog.String("error", err.Error()))
			}
		}
		return imagehost.NewGCSUploader(client, cfg.GCSBucket, cfg.UploadMaxSize), closeFn, nil

	default:
		return nil, func() {}, nil
	}
}

// rateLimiterConfig はreq/min単位の設定をreq/secに変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlc := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlc.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlc.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitWrite > 0 {
		rlc.WriteRate = rate.Limit(float64(cfg.RateLimitWrite) / 60.0)
		rlc.WriteBurst = cfg.RateLimitWrite
	}
	return rlc
}

// runServe はAPIサーバーモードで起動する。
// ドキュメントストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. ドキュメントストアと画像ホスティング
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	defer be.store.Close()

	images, closeImages, err := openImageUploader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeImages()

	// 2. リポジトリの初期化
	userRepo := repository.NewDocUserRepo(be.store)
	sessionRepo := repository.NewDocSessionRepo(be.store)
	notificationRepo := repository.NewDocNotificationRepo(be.store)

	// 3. セキュリティ・メトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 4. 認証とゲートウェイ
	var oauthProvider auth.OAuthProvider
	if cfg.GoogleEnabled() {
		oauthProvider = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	} else {
		slog.Info("google sign-in disabled")
	}
	authService := auth.NewService(
		oauthProvider, userRepo, userRepo, userRepo, sessionRepo,
		auth.ServiceConfig{
			SessionMaxAge:     cfg.SessionMaxAge,
			MinPasswordLength: cfg.MinPasswordLength,
		},
	)

	gw := gateway.New(authService, be.store, images)
	unsubscribe := gw.OnAuthChange(func(p *model.Principal) {
		if p == nil {
			slog.Info("auth state changed", slog.Bool("signed_in", false))
			return
		}
		slog.Info("auth state changed",
			slog.Bool("signed_in", true),
			slog.String("user_id", p.UID),
			slog.String("provider", p.Provider),
		)
	})
	defer unsubscribe()

	// 5. ドメインサービスの初期化
	notificationService := notification.NewService(notificationRepo)
	userService := user.NewService(userRepo, ssrfGuard)
	forms := content.NewRegistry(content.Deps{
		Writer:    gw,
		Sanitizer: sanitizer,
		Links:     ssrfGuard,
		Metrics:   collector,
	})

	githubClient, err := github.NewClient(
		github.Config{Token: cfg.GitHubToken},
		ssrfGuard.NewSafeClient(cfg.GitHubFeedTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:  be.health,
		MetricsHandler: metrics.Handler(registry),
		Logger:         slog.Default(),
		HTTPMetrics:    collector,

		SessionResolver:   authService,
		Profiles:          userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,

		AuthGateway:    gw,
		SessionService: authService,
		AuthMetrics:    collector,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Lister:     gw,
		Developers: userService,

		Forms:        forms,
		MaxImageSize: cfg.UploadMaxSize,

		Likes:     toggle.NewMembershipController(toggle.RelationLike, gw, notificationService, collector),
		Bookmarks: toggle.NewMembershipController(toggle.RelationBookmark, gw, notificationService, collector),
		Follows:   toggle.NewFollowController(gw, notificationService, collector),

		UserService:         userService,
		NotificationService: notificationService,
		GitHub:              githubClient,

		Shell: route.NewShell(),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// ドキュメントストアを開き、期限切れセッションのクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. ドキュメントストア
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	defer be.store.Close()

	// 2. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(repository.NewDocSessionRepo(be.store), slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// Postgres以外のバックエンドではスキーマが不要なため何もしない。
func runMigrate(cfg *config.Config) error {
	if cfg.DocstoreBackend != config.BackendPostgres {
		slog.Info("migrations skipped for non-postgres backend",
			slog.String("docstore", cfg.DocstoreBackend),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
