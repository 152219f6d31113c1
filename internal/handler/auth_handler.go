// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/reviewgen/internal/cookie"
	"github.com/hitoshi/reviewgen/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	IssueState() (stateID, state string, err error)
	ConsumeState(stateID string) string
	HandleCallback(ctx context.Context, code string) (sessionID string, err error)
	Logout(sessionID string)
	CurrentSession(sessionID string) *model.Session
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	SessionSecret string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はGitHub OAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// cookieOptions はこのハンドラー設定に対応するCookie発行オプションを返す。
func (h *AuthHandler) cookieOptions() cookie.Options {
	return cookie.Options{
		Secure: h.config.CookieSecure,
		Domain: h.config.CookieDomain,
		MaxAge: h.config.SessionMaxAge,
	}
}

// Login はGitHub OAuthフローを開始する。
// GET /auth/github/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	stateID, state, err := h.service.IssueState()
	if err != nil {
		slog.Error("failed to issue oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// state IDを署名付きCookieに保存（CSRF対策、有効期間10分）
	cookie.SetState(w, stateID, h.config.SessionSecret, h.cookieOptions())

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. state Cookieの署名検証と保存済みstateの消費（1回限り）
	stateID := cookie.ReadState(r, h.config.SessionSecret)
	stored := ""
	if stateID != "" {
		stored = h.service.ConsumeState(stateID)
	}

	// state Cookieは使い捨てなので即座に削除
	cookie.ClearState(w, h.cookieOptions())

	state := r.URL.Query().Get("state")
	if stored == "" || state == "" || stored != state {
		slog.Warn("oauth state mismatch")
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認証処理（トークン交換とセッション発行）
	sessionID, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 4. 署名付きセッションCookieを設定（HTTP Only）
	cookie.SetSession(w, sessionID, h.config.SessionSecret, h.cookieOptions())

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := cookie.ReadSession(r, h.config.SessionSecret); sessionID != "" {
		h.service.Logout(sessionID)
	}

	cookie.ClearSession(w, h.cookieOptions())
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Me は現在のログインユーザー情報を返す。トークンは決して含めない。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sessionID := cookie.ReadSession(r, h.config.SessionSecret)
	if sessionID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sess := h.service.CurrentSession(sessionID)
	if sess == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"login": sess.Login,
		"scope": sess.Scope,
	})
}
