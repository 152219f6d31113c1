// Package app はアプリケーションの初期化と起動を提供する。
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

	"github.com/hitoshi/reviewgen/internal/auth"
	"github.com/hitoshi/reviewgen/internal/config"
	"github.com/hitoshi/reviewgen/internal/github"
	"github.com/hitoshi/reviewgen/internal/handler"
	"github.com/hitoshi/reviewgen/internal/job"
	"github.com/hitoshi/reviewgen/internal/logger"
	"github.com/hitoshi/reviewgen/internal/metrics"
	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/pipeline"
	"github.com/hitoshi/reviewgen/internal/session"
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
		slog.String("base_url", cfg.BaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
// ストアはすべてインメモリのため、シャットダウンで未完了ジョブとセッションは失われる。
func runServe(cfg *config.Config) error {
	// 1. ストアの初期化（インメモリ、プロセスと同寿命）
	sessionStore := session.NewStore()
	jobStore := job.NewStore()

	// 2. メトリクスの初期化とジョブストアへのフック登録
	collector := metrics.NewCollector()
	jobStore.SetObserver(collector.RecordJobFinished)

	// 3. ドメインサービスの初期化
	oauthProvider := github.NewOAuthProvider(github.OAuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURL,
	})
	authService := auth.NewService(oauthProvider, sessionStore)

	githubClient := github.NewClient(
		&http.Client{Timeout: 30 * time.Second},
		slog.Default(),
	)

	pipelineRunner := pipeline.NewHTTPRunner(
		&http.Client{Timeout: cfg.AnalysisTimeout},
		slog.Default(),
		cfg.AnalysisBaseURL,
	)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitPipeline),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionStore,
		SessionSecret:     cfg.SessionSecret,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		Logger:            slog.Default(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			SessionSecret: cfg.SessionSecret,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		JobService:      jobStore,
		Collector:       githubClient,
		PipelineRunner:  pipelineRunner,
		JobRecorder:     collector,
		CollectTimeout:  cfg.CollectTimeout,
		GenerateTimeout: cfg.AnalysisTimeout,

		MetricsHandler: collector.Handler(),
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
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
