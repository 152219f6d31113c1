// Package auth はOAuth認証フローとセッション発行を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/hitoshi/reviewgen/internal/github"
	"github.com/hitoshi/reviewgen/internal/model"
	"github.com/hitoshi/reviewgen/internal/session"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ログイン名を取得する。
	ExchangeCode(ctx context.Context, code string) (*github.OAuthResult, error)
}

// Service は認証に関するビジネスロジックを提供する。
// アクセストークンはセッションストアにのみ保持し、決してログに出さない。
type Service struct {
	oauth    OAuthProvider
	sessions *session.Store
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, sessions *session.Store) *Service {
	return &Service{
		oauth:    oauth,
		sessions: sessions,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// IssueState はOAuth stateとそれを指す短いIDを発行し、ストアに保存する。
// IDは署名付きCookieでクライアントに渡り、state値は認可プロバイダーへ送られる。
func (s *Service) IssueState() (stateID, state string, err error) {
	state, err = randomHex(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	stateID, err = randomHex(8)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state id: %w", err)
	}
	s.sessions.SetOAuthState(stateID, state)
	return stateID, state, nil
}

// ConsumeState は保存済みstateを取得し、同時に消費する。
// 同一IDの2回目以降の呼び出しは空文字を返す（リプレイ防止）。
func (s *Service) ConsumeState(stateID string) string {
	return s.sessions.GetAndRemoveOAuthState(stateID)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行してIDを返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (string, error) {
	result, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	sessionID, err := s.sessions.Create(result.AccessToken, result.Login, result.Scope)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("login", result.Login),
		slog.String("scope", result.Scope),
	)

	return sessionID, nil
}

// Logout はセッションを破棄する。存在しないIDに対しても冪等に動作する。
func (s *Service) Logout(sessionID string) {
	s.sessions.Destroy(sessionID)
	slog.Info("user logged out", slog.String("session_id", sessionID))
}

// CurrentSession はセッションを検索する。見つからない場合はnil。
func (s *Service) CurrentSession(sessionID string) *model.Session {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Get(sessionID)
}

// randomHex は暗号的に安全なランダム16進文字列を生成する。
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
