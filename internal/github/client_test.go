package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func searchItem(repo string, number int) map[string]any {
	return map[string]any{
		"repository_url": "https://api.github.com/repos/" + repo,
		"number":         number,
		"title":          fmt.Sprintf("%s pr %d", repo, number),
		"html_url":       fmt.Sprintf("https://github.com/%s/pull/%d", repo, number),
	}
}

func TestCollect_Success(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_token" {
			t.Errorf("Authorization = %q", got)
		}
		switch {
		case r.URL.Path == "/user":
			json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
		case r.URL.Path == "/search/issues":
			q := r.URL.Query().Get("q")
			queries = append(queries, q)
			var items []map[string]any
			if strings.Contains(q, "author:octocat") && !strings.Contains(q, "-author:") {
				items = []map[string]any{searchItem("org/a", 1)}
			} else {
				items = []map[string]any{searchItem("org/b", 2)}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"total_count": len(items),
				"items":       items,
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.Client(), discardLogger())
	client.baseURL = server.URL

	raw, err := client.Collect(context.Background(), "gho_token", "2025-01-01", "2025-12-31")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if raw.Login != "octocat" {
		t.Errorf("Login = %q", raw.Login)
	}
	if len(raw.PullRequests) != 1 || len(raw.Reviews) != 1 {
		t.Errorf("PullRequests = %d, Reviews = %d, want 1 each", len(raw.PullRequests), len(raw.Reviews))
	}

	if len(queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(queries))
	}
	if queries[0] != "is:pr author:octocat merged:2025-01-01..2025-12-31" {
		t.Errorf("authored query = %q", queries[0])
	}
	if queries[1] != "is:pr reviewed-by:octocat -author:octocat updated:2025-01-01..2025-12-31" {
		t.Errorf("reviewed query = %q", queries[1])
	}
}

func TestCollect_Unauthorized_ErrorMentionsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.Client(), discardLogger())
	client.baseURL = server.URL

	_, err := client.Collect(context.Background(), "bad-token", "2025-01-01", "2025-12-31")
	if err == nil {
		t.Fatal("Collect() error = nil, want error")
	}
	// 上位のハンドラーは文言の401でステータス分類するため、メッセージに含まれること
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want to mention 401", err.Error())
	}
}

func TestSearchIssues_Pagination(t *testing.T) {
	// 2ページ分（100件 + 50件）を返すサーバー
	total := 150
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user" {
			json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
			return
		}
		page := r.URL.Query().Get("page")
		count := perPage
		if page == "2" {
			count = total - perPage
		}
		items := make([]map[string]any, count)
		for i := range items {
			items[i] = searchItem("org/a", i)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"total_count": total,
			"items":       items,
		})
	}))
	defer server.Close()

	client := NewClient(server.Client(), discardLogger())
	client.baseURL = server.URL

	items, err := client.searchIssues(context.Background(), "token", "is:pr author:octocat")
	if err != nil {
		t.Fatalf("searchIssues() error = %v", err)
	}
	if len(items) != total {
		t.Errorf("items = %d, want %d", len(items), total)
	}
}

func TestSearchIssues_StopsAtMaxPages(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		items := make([]map[string]any, perPage)
		for i := range items {
			items[i] = searchItem("org/a", i)
		}
		// total_countを巨大にしてもページ上限で打ち切られる
		json.NewEncoder(w).Encode(map[string]any{
			"total_count": 100000,
			"items":       items,
		})
	}))
	defer server.Close()

	client := NewClient(server.Client(), discardLogger())
	client.baseURL = server.URL

	items, err := client.searchIssues(context.Background(), "token", "is:pr author:octocat")
	if err != nil {
		t.Fatalf("searchIssues() error = %v", err)
	}
	if requests != maxPages {
		t.Errorf("requests = %d, want %d", requests, maxPages)
	}
	if len(items) != perPage*maxPages {
		t.Errorf("items = %d, want %d", len(items), perPage*maxPages)
	}
}
