// Package session はインメモリのセッションストアとOAuth stateストアを提供する。
// プロセス再起動でセッションは消える（永続化は非対応）。
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/reviewgen/internal/model"
)

// Store はセッションとOAuth stateをメモリ上で管理する。
// 全操作はミューテックスで直列化される。
type Store struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	states   map[string]string
	now      func() time.Time // テスト用に差し替え可能
}

// NewStore はStoreを生成する。
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*model.Session),
		states:   make(map[string]string),
		now:      time.Now,
	}
}

// Create は新しいセッションを作成し、そのIDを返す。
// 格納されるレコードは作成後に変更されない（イミュータブルなスナップショット）。
func (s *Store) Create(accessToken, login, scope string) (string, error) {
	id, err := generateID("sess")
	if err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &model.Session{
		ID:          id,
		AccessToken: accessToken,
		Login:       login,
		Scope:       scope,
		CreatedAt:   s.now(),
	}
	return id, nil
}

// Get はセッションを検索する。見つからない場合はnilを返す（エラーにはしない）。
// 返り値はコピーであり、呼び出し元が変更してもストアには影響しない。
func (s *Store) Get(id string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	copied := *sess
	return &copied
}

// Destroy はセッションを削除する。存在しないIDに対しても冪等に動作する。
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// SetOAuthState は短いIDをキーにOAuth state値を保存する。
// IDはCookieに載せ、state値は認可プロバイダーへ送る。
func (s *Store) SetOAuthState(id, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
}

// GetAndRemoveOAuthState はstate値を取得し、同時に消費（削除）する。
// 読み取りと削除は同一ロック内で行い、同一IDに対する消費は高々1回に制限する。
// 見つからない場合は空文字を返す。
func (s *Store) GetAndRemoveOAuthState(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[id]
	if !ok {
		return ""
	}
	delete(s.states, id)
	return state
}

// generateID は暗号的に安全なランダムIDを生成する。
func generateID(prefix string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}
