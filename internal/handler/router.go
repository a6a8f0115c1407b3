package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/woogie/woogie-server/internal/metrics"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	JWTSecret         string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス
	MetricsCollector metrics.MetricsCollector
	MetricsGatherer  prometheus.Gatherer

	// フィード
	FeedService FeedServiceInterface

	// イベント
	EventService EventServiceInterface

	// マッチ
	MatchService MatchServiceInterface

	// レビュー
	ReviewService ReviewServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 通報
	ReportCreator ReportCreator
	Sanitizer     security.TextSanitizerService
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → CORSMiddleware → SecurityHeadersMiddleware
//	→ AuthMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// ヘルスチェック（/health）とメトリクス（/metrics）は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェアを最上位に適用
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.MetricsCollector))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	feedHandler := NewFeedHandler(deps.FeedService)
	eventHandler := NewEventHandler(deps.EventService)
	matchHandler := NewMatchHandler(deps.MatchService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	userHandler := NewUserHandler(deps.UserService)
	reportHandler := NewReportHandler(deps.ReportCreator, deps.Sanitizer)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.JWTSecret))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// フィード取得
		r.Get("/api/feed", feedHandler.GetFeed)

		// イベント管理
		r.Route("/api/events", func(r chi.Router) {
			r.Post("/", eventHandler.CreateEvent)

			// /api/events/last は /{id} より先に登録する
			r.Get("/last", eventHandler.GetLastEvent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.GetEvent)
				r.Delete("/", eventHandler.DeleteEvent)
			})
		})

		// マッチ管理
		r.Route("/api/matches", func(r chi.Router) {
			// POST /api/matches - スワイプ登録（スワイプ専用レート制限を追加）
			r.With(deps.RateLimiter.SwipeMiddleware()).Post("/", matchHandler.CreateMatch)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/accept", matchHandler.AcceptMatch)
				r.Delete("/", matchHandler.DeleteMatch)
			})
		})

		// レビュー投稿
		r.Post("/api/reviews", reviewHandler.PostReview)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.Post("/block", userHandler.BlockUser)
				r.Delete("/block", userHandler.UnblockUser)
			})
		})

		// 通報受付
		r.Route("/api/report", func(r chi.Router) {
			r.Post("/event", reportHandler.ReportEvent)
			r.Post("/user", reportHandler.ReportUser)
		})
	})

	return r
}
