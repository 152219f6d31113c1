// Package normalize は収集した生の活動データをエビデンス契約へ正規化する。
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hitoshi/reviewgen/internal/github"
	"github.com/hitoshi/reviewgen/internal/model"
)

// Normalize は生の活動データをエビデンスに変換する。
// コントリビューションはid（org/repo#N形式）で昇順ソートされ、
// 同じ入力からは常に同じ順序の出力が得られる。
// 作成分とレビュー分の両方に現れるPRは作成分として1件にまとめる。
func Normalize(raw *github.RawActivity, startDate, endDate string) *model.Evidence {
	evidence := &model.Evidence{
		Timeframe: model.Timeframe{
			StartDate: startDate,
			EndDate:   endDate,
		},
		Contributions: []model.Contribution{},
	}
	if raw == nil {
		return evidence
	}

	seen := make(map[string]struct{})

	for _, item := range raw.PullRequests {
		c := toContribution(item, "pull_request")
		if c == nil {
			continue
		}
		id := c.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		evidence.Contributions = append(evidence.Contributions, c)
	}

	for _, item := range raw.Reviews {
		c := toContribution(item, "review")
		if c == nil {
			continue
		}
		id := c.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		evidence.Contributions = append(evidence.Contributions, c)
	}

	sort.Slice(evidence.Contributions, func(i, j int) bool {
		return evidence.Contributions[i].ID() < evidence.Contributions[j].ID()
	})

	return evidence
}

// toContribution は検索APIの1項目をコントリビューションへ変換する。
// リポジトリ名か番号が取れない項目はスキップ（nilを返す）。
func toContribution(item map[string]any, contribType string) model.Contribution {
	repo := repoFromRepositoryURL(stringField(item, "repository_url"))
	number, ok := numberField(item, "number")
	if repo == "" || !ok {
		return nil
	}

	c := model.Contribution{
		"id":    fmt.Sprintf("%s#%d", repo, number),
		"repo":  repo,
		"type":  contribType,
		"title": stringField(item, "title"),
		"url":   stringField(item, "html_url"),
	}

	if closedAt := stringField(item, "closed_at"); closedAt != "" {
		c["closed_at"] = closedAt
	}
	if pr, ok := item["pull_request"].(map[string]any); ok {
		if mergedAt, ok := pr["merged_at"].(string); ok && mergedAt != "" {
			c["merged_at"] = mergedAt
		}
	}

	return c
}

// repoFromRepositoryURL は "https://api.github.com/repos/org/repo" 形式の
// URLから "org/repo" を取り出す。形式が合わない場合は空文字。
func repoFromRepositoryURL(u string) string {
	const marker = "/repos/"
	i := strings.Index(u, marker)
	if i < 0 {
		return ""
	}
	repo := u[i+len(marker):]
	if strings.Count(repo, "/") != 1 {
		return ""
	}
	return repo
}

func stringField(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return s
}

// numberField はJSONデコードでfloat64になった数値フィールドを読み取る。
func numberField(item map[string]any, key string) (int, bool) {
	switch v := item[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
