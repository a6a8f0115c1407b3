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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/woogie/woogie-server/internal/config"
	"github.com/woogie/woogie-server/internal/database"
	"github.com/woogie/woogie-server/internal/event"
	"github.com/woogie/woogie-server/internal/feed"
	"github.com/woogie/woogie-server/internal/handler"
	"github.com/woogie/woogie-server/internal/logger"
	"github.com/woogie/woogie-server/internal/match"
	"github.com/woogie/woogie-server/internal/metrics"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/notification"
	"github.com/woogie/woogie-server/internal/repository"
	"github.com/woogie/woogie-server/internal/review"
	"github.com/woogie/woogie-server/internal/security"
	"github.com/woogie/woogie-server/internal/user"
	"github.com/woogie/woogie-server/internal/worker/cleanup"
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

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	matchRepo := repository.NewPostgresMatchRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	reportRepo := repository.NewPostgresReportRepo(db)
	notifRepo := repository.NewPostgresNotificationRepo(db)

	// 3. セキュリティサービスとメトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. フィードキャッシュとエンジンの初期化
	eventCache := feed.NewEventCache(eventRepo, cfg.FeedCacheTTL, collector)
	feedEngine := feed.NewFeedEngine(
		eventCache, userRepo,
		cfg.FeedCutoffMode, cfg.FeedDefaultMaxDist, collector,
	)

	// 5. ドメインサービスの初期化
	eventService := event.NewEventService(eventRepo, sanitizer, ssrfGuard, cfg.FeedCutoffMode)
	matchService := match.NewMatchService(matchRepo, eventRepo, notifRepo, collector)
	reviewService := review.NewReviewService(reviewRepo, userRepo)
	userService := user.NewService(userRepo, sanitizer, ssrfGuard)

	// 6. レート制限の構成（req/min単位の設定値をreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.SwipeRate = rate.Limit(float64(cfg.RateLimitSwipe) / 60)
	rateLimiterCfg.SwipeBurst = cfg.RateLimitSwipe

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		JWTSecret:         cfg.JWTSecret,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		Logger:            slog.Default(),

		MetricsCollector: collector,
		MetricsGatherer:  registry,

		FeedService:   feedEngine,
		EventService:  eventService,
		MatchService:  matchService,
		ReviewService: reviewService,
		UserService:   userService,

		ReportCreator: reportRepo,
		Sanitizer:     sanitizer,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、通知ディスパッチャとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	notifRepo := repository.NewPostgresNotificationRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 通知ディスパッチャの初期化
	ssrfGuard := security.NewSSRFGuard()
	expoClient := notification.NewExpoClient(
		cfg.PushEndpoint, ssrfGuard, cfg.PushTimeout, cfg.PushBatchSize,
	)
	dispatcher := notification.NewDispatcher(
		notifRepo, userRepo, expoClient,
		slog.Default(), collector, cfg.PushBatchSize,
	)

	// 5. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.NotificationRetentionDays = cfg.NotificationRetentionDays
	cleanupJob.EventRetentionDays = cfg.EventRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("push_interval", cfg.PushInterval),
		slog.Int("push_batch_size", cfg.PushBatchSize),
	)

	// ヘルスチェックとメトリクス公開用の軽量HTTPサーバーを起動
	go runWorkerHTTPServer(ctx, cfg.ServerPort, registry)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 通知ディスパッチャをメインgoroutineで実行（ブロッキング）
	dispatcher.Start(ctx, cfg.PushInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runWorkerHTTPServer はワーカー用のヘルスチェックとメトリクス公開サーバーを起動する。
// ctxのキャンセルでシャットダウンする。
func runWorkerHTTPServer(ctx context.Context, port string, registry prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler(registry))

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("worker http server error", slog.String("error", err.Error()))
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
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
