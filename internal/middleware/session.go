// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/reviewgen/internal/cookie"
	"github.com/hitoshi/reviewgen/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionIDContextKey はリクエストコンテキストにセッションIDを格納するためのキー。
var sessionIDContextKey = contextKey("session_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// session.Storeの部分集合として定義する。
type SessionFinder interface {
	Get(id string) *model.Session
}

// NewSessionMiddleware は署名付きCookieからセッションIDを検証・抽出し、
// セッションストアで有効性を確認するミドルウェアを返す。
// 検証済みセッションIDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(finder SessionFinder, secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieの署名検証
			sessionID := cookie.ReadSession(r, secret)
			if sessionID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionRequiredError())
				return
			}

			// 2. セッションの存在確認
			if finder.Get(sessionID) == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionRequiredError())
				return
			}

			// 3. セッションIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), sessionIDContextKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionIDFromContext(ctx context.Context) (string, error) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return sessionID, nil
}

// ContextWithSessionID はコンテキストにセッションIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}
