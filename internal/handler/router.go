package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/pipeline"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	SessionSecret     string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ジョブとパイプライン
	JobService     JobService
	Collector      CollectorInterface
	PipelineRunner pipeline.Runner
	JobRecorder    JobStartedRecorder
	CollectTimeout time.Duration
	GenerateTimeout time.Duration

	// メトリクス公開
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを
// 構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Metrics → Logging → Recovery
//
// 認証が必要なルートにはさらに Session → RateLimit(General) が積まれ、
// ジョブ開始エンドポイントには専用のRateLimit(Pipeline)が加わる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	collectHandler := NewCollectHandler(deps.JobService, deps.Collector, deps.SessionFinder, deps.JobRecorder, deps.CollectTimeout)
	generateHandler := NewGenerateHandler(deps.JobService, deps.PipelineRunner, deps.JobRecorder, deps.GenerateTimeout)
	jobHandler := NewJobHandler(deps.JobService)
	reportHandler := NewReportHandler()

	// --- 認証不要のルート ---

	r.Get("/health", handleHealth)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.Login)
		r.Get("/github/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.SessionSecret))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ジョブ開始（専用レート制限を追加）
		r.With(deps.RateLimiter.PipelineMiddleware()).Post("/api/collect", collectHandler.Collect)
		r.With(deps.RateLimiter.PipelineMiddleware()).Post("/api/generate", generateHandler.Generate)

		// ジョブポーリング
		r.Route("/api/jobs", func(r chi.Router) {
			r.Get("/latest", jobHandler.GetLatestJob)
			r.Get("/{id}", jobHandler.GetJob)
		})

		// Markdown組み立て（同期・純粋関数）
		r.Post("/api/report", reportHandler.Assemble)
	})

	return r
}

// handleHealth はヘルスチェックエンドポイント。
// 外部依存を持たないため、プロセスが生きていれば200を返す。
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
