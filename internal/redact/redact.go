// Package redact はエビデンスからの除外フィルタと、生成物中の
// リポジトリ名の伏せ字化を提供する。生成レポートを共有・保管しても
// どのリポジトリで作業したかが漏れないようにするための処理。
package redact

import (
	"strings"

	"github.com/hitoshi/reviewgen/internal/model"
)

// Placeholder はリポジトリ名の置換先となる固定文字列。
const Placeholder = "internal repo"

// ExtractRepoNames はエビデンス全体に登場するリポジトリ名を重複なしで返す。
// 順序は初出順（呼び出しごとに決定的）。
func ExtractRepoNames(e *model.Evidence) []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var names []string
	for _, c := range e.Contributions {
		repo := c.Repo()
		if repo == "" {
			continue
		}
		if _, ok := seen[repo]; ok {
			continue
		}
		seen[repo] = struct{}{}
		names = append(names, repo)
	}
	return names
}

// FilterExcludedContributions は除外リポジトリ・除外IDに該当する
// コントリビューションを取り除いた新しいエビデンスを返す。
// タイムフレーム等の他フィールドは参照のまま引き継ぐ。
// 両方の除外リストが空の場合は同一参照をそのまま返す（恒等・コピーなし）。
func FilterExcludedContributions(e *model.Evidence, excludedRepos, excludedIDs []string) *model.Evidence {
	if len(excludedRepos) == 0 && len(excludedIDs) == 0 {
		return e
	}

	repoSet := make(map[string]struct{}, len(excludedRepos))
	for _, r := range excludedRepos {
		repoSet[r] = struct{}{}
	}
	idSet := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		idSet[id] = struct{}{}
	}

	kept := make([]model.Contribution, 0, len(e.Contributions))
	for _, c := range e.Contributions {
		if _, ok := repoSet[c.Repo()]; ok && c.Repo() != "" {
			continue
		}
		if _, ok := idSet[c.ID()]; ok && c.ID() != "" {
			continue
		}
		kept = append(kept, c)
	}

	filtered := *e
	filtered.Contributions = kept
	return &filtered
}

// RedactRepoNames はJSON相当のツリー（文字列・シーケンス・キー付き
// マッピング・スカラー）を再帰的に走査し、文字列中の各リポジトリ名の
// リテラル出現をすべてPlaceholderに置換した新しい値を返す。
// 置換は大文字小文字を区別する部分文字列一致で、URLに埋め込まれた
// リポジトリ名にも適用される。名前リストが空の場合は値をそのまま返す。
func RedactRepoNames(v any, repoNames []string) any {
	if len(repoNames) == 0 {
		return v
	}
	switch x := v.(type) {
	case string:
		return redactString(x, repoNames)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = RedactRepoNames(item, repoNames)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = RedactRepoNames(val, repoNames)
		}
		return out
	case model.Contribution:
		out := make(model.Contribution, len(x))
		for k, val := range x {
			out[k] = RedactRepoNames(val, repoNames)
		}
		return out
	default:
		return v
	}
}

// Evidence はエビデンス中の全文字列からリポジトリ名を伏せ字化した
// 新しいエビデンスを返す。名前リストが空の場合は同一参照を返す。
func Evidence(e *model.Evidence, repoNames []string) *model.Evidence {
	if e == nil || len(repoNames) == 0 {
		return e
	}
	out := *e
	out.Contributions = make([]model.Contribution, len(e.Contributions))
	for i, c := range e.Contributions {
		out.Contributions[i] = RedactRepoNames(c, repoNames).(model.Contribution)
	}
	out.RoleContext = RedactRepoNames(e.RoleContext, repoNames)
	return &out
}

// Result はパイプライン出力の全文字列からリポジトリ名を伏せ字化した
// 新しい結果を返す。型付き構造体に対する閉じた走査で、リフレクションは使わない。
func Result(r *model.PipelineResult, repoNames []string) *model.PipelineResult {
	if r == nil || len(repoNames) == 0 {
		return r
	}
	out := &model.PipelineResult{}
	if r.Themes != nil {
		themes := make([]model.ThemeEntry, len(r.Themes.Themes))
		for i, t := range r.Themes.Themes {
			themes[i] = model.ThemeEntry{
				ThemeID:        t.ThemeID,
				ThemeName:      redactString(t.ThemeName, repoNames),
				OneLiner:       redactString(t.OneLiner, repoNames),
				WhyItMatters:   redactString(t.WhyItMatters, repoNames),
				Confidence:     t.Confidence,
				Notes:          redactString(t.Notes, repoNames),
				AnchorEvidence: redactRefs(t.AnchorEvidence, repoNames),
			}
		}
		out.Themes = &model.ThemesOutput{Themes: themes}
	}
	if r.Bullets != nil {
		byTheme := make([]model.BulletsByTheme, len(r.Bullets.BulletsByTheme))
		for i, bt := range r.Bullets.BulletsByTheme {
			byTheme[i] = model.BulletsByTheme{
				ThemeID: bt.ThemeID,
				Bullets: redactBullets(bt.Bullets, repoNames),
			}
		}
		out.Bullets = &model.BulletsOutput{
			Top10BulletsOverall: redactBullets(r.Bullets.Top10BulletsOverall, repoNames),
			BulletsByTheme:      byTheme,
		}
	}
	if r.Stories != nil {
		stories := make([]model.Story, len(r.Stories.Stories))
		for i, st := range r.Stories.Stories {
			stories[i] = model.Story{
				Title:      redactString(st.Title, repoNames),
				Situation:  redactString(st.Situation, repoNames),
				Task:       redactString(st.Task, repoNames),
				Actions:    redactStrings(st.Actions, repoNames),
				Results:    redactStrings(st.Results, repoNames),
				Evidence:   redactRefs(st.Evidence, repoNames),
				Confidence: st.Confidence,
				ThemeID:    st.ThemeID,
			}
		}
		out.Stories = &model.StoriesOutput{Stories: stories}
	}
	if r.SelfEval != nil {
		out.SelfEval = &model.SelfEvalOutput{}
		if s := r.SelfEval.Sections; s != nil {
			out.SelfEval.Sections = &model.SelfEvalSections{
				Summary:            redactSection(s.Summary, repoNames),
				KeyAccomplishments: redactBullets(s.KeyAccomplishments, repoNames),
				HowIWorked:         redactSection(s.HowIWorked, repoNames),
				Growth:             redactSection(s.Growth, repoNames),
				NextYearGoals:      redactBullets(s.NextYearGoals, repoNames),
			}
		}
	}
	return out
}

func redactString(s string, repoNames []string) string {
	for _, name := range repoNames {
		if name == "" {
			continue
		}
		s = strings.ReplaceAll(s, name, Placeholder)
	}
	return s
}

func redactStrings(items []string, repoNames []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = redactString(s, repoNames)
	}
	return out
}

func redactRefs(refs []model.EvidenceRef, repoNames []string) []model.EvidenceRef {
	if refs == nil {
		return nil
	}
	out := make([]model.EvidenceRef, len(refs))
	for i, ref := range refs {
		out[i] = model.EvidenceRef{
			ID:    redactString(ref.ID, repoNames),
			Title: redactString(ref.Title, repoNames),
			URL:   redactString(ref.URL, repoNames),
		}
	}
	return out
}

func redactBullets(bullets []model.Bullet, repoNames []string) []model.Bullet {
	if bullets == nil {
		return nil
	}
	out := make([]model.Bullet, len(bullets))
	for i, b := range bullets {
		out[i] = model.Bullet{
			Text:     redactString(b.Text, repoNames),
			Evidence: redactRefs(b.Evidence, repoNames),
			ThemeID:  b.ThemeID,
		}
	}
	return out
}

func redactSection(s *model.SelfEvalSection, repoNames []string) *model.SelfEvalSection {
	if s == nil {
		return nil
	}
	return &model.SelfEvalSection{
		Text:     redactString(s.Text, repoNames),
		Evidence: redactRefs(s.Evidence, repoNames),
	}
}
