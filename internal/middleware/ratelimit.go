package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	PipelineRate    rate.Limit    // ジョブ開始（collect/generate）のレート（req/sec）
	PipelineBurst   int           // ジョブ開始のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig は1分あたりの上限リクエスト数からレート制限設定を
// 組み立てる。バーストは1分間の上限と同じ値にする。
func NewRateLimiterConfig(generalPerMinute, pipelinePerMinute int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMinute) / 60.0),
		GeneralBurst:    generalPerMinute,
		PipelineRate:    rate.Limit(float64(pipelinePerMinute) / 60.0),
		PipelineBurst:   pipelinePerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/session、ジョブ開始 6 req/min/session。
// ジョブ開始は外部の収集・解析バックエンドを叩くため厳しめに制限する。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 6)
}

// sessionLimiter はセッションごとのレートリミッターとアクセス時刻を保持する。
type sessionLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はセッションごとのレート制限を管理する。
// API全般のレート制限とジョブ開始のレート制限の2種類を提供する。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*sessionLimiter

	pipelineMu       sync.RWMutex
	pipelineLimiters map[string]*sessionLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:           config,
		generalLimiters:  make(map[string]*sessionLimiter),
		pipelineLimiters: make(map[string]*sessionLimiter),
		stopCh:           make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにセッションIDが含まれている必要がある
// （SessionMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := SessionIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateLimiter(&rl.generalMu, rl.generalLimiters, sessionID, rl.config.GeneralRate, rl.config.GeneralBurst)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("session_id", sessionID),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PipelineMiddleware はジョブ開始エンドポイント専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) PipelineMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := SessionIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateLimiter(&rl.pipelineMu, rl.pipelineLimiters, sessionID, rl.config.PipelineRate, rl.config.PipelineBurst)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.PipelineRate)
				slog.Warn("rate limit exceeded",
					slog.String("session_id", sessionID),
					slog.String("limit_type", "pipeline"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getOrCreateLimiter はセッションのリミッターを取得または生成する。
func (rl *RateLimiter) getOrCreateLimiter(mu *sync.RWMutex, limiters map[string]*sessionLimiter, sessionID string, r rate.Limit, burst int) *rate.Limiter {
	mu.RLock()
	sl, ok := limiters[sessionID]
	mu.RUnlock()

	if ok {
		mu.Lock()
		sl.lastAccess = time.Now()
		mu.Unlock()
		return sl.limiter
	}

	mu.Lock()
	defer mu.Unlock()

	// 二重生成のチェック
	if sl, ok := limiters[sessionID]; ok {
		sl.lastAccess = time.Now()
		return sl.limiter
	}

	sl = &sessionLimiter{
		limiter:    rate.NewLimiter(r, burst),
		lastAccess: time.Now(),
	}
	limiters[sessionID] = sl
	return sl.limiter
}

// cleanupLoop は一定間隔で長時間アクセスのないリミッターを削除する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup はクリーンアップ間隔の2倍を超えてアクセスのないエントリを削除する。
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-2 * rl.config.CleanupInterval)

	rl.generalMu.Lock()
	for id, sl := range rl.generalLimiters {
		if sl.lastAccess.Before(cutoff) {
			delete(rl.generalLimiters, id)
		}
	}
	rl.generalMu.Unlock()

	rl.pipelineMu.Lock()
	for id, sl := range rl.pipelineLimiters {
		if sl.lastAccess.Before(cutoff) {
			delete(rl.pipelineLimiters, id)
		}
	}
	rl.pipelineMu.Unlock()
}

// writeRateLimitResponse は429レスポンスをRetry-Afterヘッダー付きで書き込む。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfter := 1
	if r > 0 {
		retryAfter = int(math.Ceil(1.0 / float64(r)))
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "rate limit exceeded",
	})
}
