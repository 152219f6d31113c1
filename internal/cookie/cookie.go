// Package cookie はセッション/OAuth state識別子の署名付きCookieを扱う。
// Cookie値は「ID + 区切り文字 + HMAC-SHA-256署名」の形式で、
// サーバーシークレットを知らないクライアントはIDを偽造・改ざんできない。
package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// SessionCookieName はセッションIDを運ぶCookie名。
	SessionCookieName = "ar_session"
	// StateCookieName はOAuth state IDを運ぶCookie名。
	StateCookieName = "ar_oauth_state"

	// delimiter はIDと署名の区切り文字。生成されるIDには含まれない。
	delimiter = "."

	// DefaultSessionMaxAge はセッションCookieのデフォルト有効期間（7日）。
	DefaultSessionMaxAge = 7 * 24 * 60 * 60
	// stateMaxAge はstate Cookieの有効期間（10分）。
	// 進行中の認可ハンドシェイクのリプレイ可能期間を短く抑える。
	stateMaxAge = 600
)

// Options はCookie発行時の設定。
type Options struct {
	Secure bool
	Domain string
	MaxAge int // セッションCookieの有効期間（秒）。0の場合はDefaultSessionMaxAge。
}

// Sign はIDにHMAC-SHA-256署名を付与したトークンを返す。
func Sign(id, secret string) string {
	return id + delimiter + signature(id, secret)
}

// Verify はトークンの署名を検証し、正当な場合のみIDを返す。
// 区切り文字は最後の出現位置で分割する。不正・改ざん・形式不明の
// 入力にはすべて空文字を返し、決して失敗（panic/エラー）しない。
func Verify(token, secret string) string {
	i := strings.LastIndex(token, delimiter)
	if i <= 0 {
		return ""
	}
	id := token[:i]
	sig := token[i+1:]

	expected := signature(id, secret)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return ""
	}
	return id
}

// signature はIDに対するHMAC-SHA-256署名を16進文字列で返す。
func signature(id, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// SetSession は署名付きセッションCookieを設定する。
func SetSession(w http.ResponseWriter, sessionID, secret string, opts Options) {
	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = DefaultSessionMaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    Sign(sessionID, secret),
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession は期限切れCookieを発行してセッションCookieを削除する。
func ClearSession(w http.ResponseWriter, opts Options) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadSession はリクエストのセッションCookieを検証し、セッションIDを返す。
// Cookieが無い・署名が不正な場合は空文字を返す。
func ReadSession(r *http.Request, secret string) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	return Verify(c.Value, secret)
}

// SetState は署名付きOAuth state Cookieを設定する。有効期間は10分固定。
func SetState(w http.ResponseWriter, stateID, secret string, opts Options) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    Sign(stateID, secret),
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearState はOAuth state Cookieを削除する。
func ClearState(w http.ResponseWriter, opts Options) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadState はリクエストのstate Cookieを検証し、state IDを返す。
func ReadState(r *http.Request, secret string) string {
	c, err := r.Cookie(StateCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	return Verify(c.Value, secret)
}
