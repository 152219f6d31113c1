// Package github はGitHub OAuth認証フローと活動データ収集クライアントを提供する。
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultAuthURL  = "https://github.com/login/oauth/authorize"
	defaultTokenURL = "https://github.com/login/oauth/access_token"
	defaultUserURL  = "https://api.github.com/user"
)

// OAuthResult は認可コード交換の結果を表す。
// AccessTokenはセッションストアにのみ保存し、ログ・レスポンスに出さないこと。
type OAuthResult struct {
	AccessToken string
	Login       string
	Scope       string
}

// OAuthConfig はGitHub OAuthプロバイダーの設定。
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
	UserURL  string
}

// OAuthProvider はGitHub OAuth 2.0による認証を提供する。
type OAuthProvider struct {
	config     OAuthConfig
	httpClient *http.Client
}

// NewOAuthProvider はOAuthProviderを生成する。
func NewOAuthProvider(config OAuthConfig) *OAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.UserURL == "" {
		config.UserURL = defaultUserURL
	}
	return &OAuthProvider{
		config:     config,
		httpClient: http.DefaultClient,
	}
}

// GetLoginURL はGitHub OAuthの認証URLを生成する。
// スコープはプライベートリポジトリの活動も収集できるようrepoを含む。
func (p *OAuthProvider) GetLoginURL(state string) string {
	params := url.Values{
		"client_id":    {p.config.ClientID},
		"redirect_uri": {p.config.RedirectURL},
		"scope":        {"repo read:user"},
		"state":        {state},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

// tokenResponse はGitHubのトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	TokenType   string `json:"token_type"`
}

// userResponse はGitHubのユーザーエンドポイントのレスポンス。
type userResponse struct {
	Login string `json:"login"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、ログイン名を取得する。
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthResult, error) {
	token, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	login, err := p.fetchLogin(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch viewer login: %w", err)
	}

	return &OAuthResult{
		AccessToken: token.AccessToken,
		Login:       login,
		Scope:       token.Scope,
	}, nil
}

// exchangeToken は認可コードをアクセストークンに交換する。
func (p *OAuthProvider) exchangeToken(ctx context.Context, code string) (*tokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &token, nil
}

// fetchLogin はアクセストークンで現在のユーザーのログイン名を取得する。
func (p *OAuthProvider) fetchLogin(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("user request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read user response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("failed to parse user response: %w", err)
	}

	if user.Login == "" {
		return "", fmt.Errorf("empty login in user response")
	}

	return user.Login, nil
}
