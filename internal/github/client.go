package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

const (
	// defaultAPIBaseURL はGitHub REST APIのベースURL。
	defaultAPIBaseURL = "https://api.github.com"
	// perPage は検索APIの1ページあたりの取得件数（APIの上限値）。
	perPage = 100
	// maxPages は1クエリあたりのページ上限。検索APIは1000件までしか返さない。
	maxPages = 10
)

// RawActivity は収集した生の活動データを表す。
// 正規化前のGitHub APIレスポンス項目をそのまま保持する。
type RawActivity struct {
	Login        string
	PullRequests []map[string]any
	Reviews      []map[string]any
}

// Client はGitHub検索APIから期間内の活動を収集するクライアント。
// トークンはリクエストヘッダーでのみ使用し、保持・記録しない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    defaultAPIBaseURL,
	}
}

// Collect は指定期間のプルリクエスト（作成分・レビュー分）を収集する。
// start/endはYYYY-MM-DD形式。認証失敗等のプロバイダーエラーは
// ステータスコードを含むメッセージのエラーとして呼び出し元へ伝える。
func (c *Client) Collect(ctx context.Context, token, start, end string) (*RawActivity, error) {
	login, err := c.fetchViewerLogin(ctx, token)
	if err != nil {
		return nil, err
	}

	authored, err := c.searchIssues(ctx, token,
		fmt.Sprintf("is:pr author:%s merged:%s..%s", login, start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to collect authored pull requests: %w", err)
	}

	reviewed, err := c.searchIssues(ctx, token,
		fmt.Sprintf("is:pr reviewed-by:%s -author:%s updated:%s..%s", login, login, start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to collect reviewed pull requests: %w", err)
	}

	c.logger.Info("github collection finished",
		slog.Int("authored", len(authored)),
		slog.Int("reviewed", len(reviewed)),
	)

	return &RawActivity{
		Login:        login,
		PullRequests: authored,
		Reviews:      reviewed,
	}, nil
}

// fetchViewerLogin はトークンの持ち主のログイン名を取得する。
func (c *Client) fetchViewerLogin(ctx context.Context, token string) (string, error) {
	body, err := c.get(ctx, token, c.baseURL+"/user")
	if err != nil {
		return "", err
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("failed to parse user response: %w", err)
	}
	if user.Login == "" {
		return "", fmt.Errorf("empty login in user response")
	}
	return user.Login, nil
}

// searchIssues は検索APIをページングしながら全件取得する。
func (c *Client) searchIssues(ctx context.Context, token, query string) ([]map[string]any, error) {
	var items []map[string]any

	for page := 1; page <= maxPages; page++ {
		reqURL := fmt.Sprintf("%s/search/issues?q=%s&per_page=%d&page=%d&sort=created&order=asc",
			c.baseURL, url.QueryEscape(query), perPage, page)

		body, err := c.get(ctx, token, reqURL)
		if err != nil {
			return nil, err
		}

		var result struct {
			TotalCount int              `json:"total_count"`
			Items      []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("failed to parse search response: %w", err)
		}

		items = append(items, result.Items...)
		if len(result.Items) < perPage || len(items) >= result.TotalCount {
			break
		}
	}

	return items, nil
}

// get はGitHub APIへの認証付きGETを実行する。
// 非200レスポンスはステータスコードを含むエラーメッセージにする
// （401/403の文言が上位でのステータス分類に使われる）。
func (c *Client) get(ctx context.Context, token, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "Reviewgen/1.0 Annual Review Generator")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read github response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("github api returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("github api returned status %d", resp.StatusCode)
	}

	return body, nil
}
