// Package report は解析パイプラインの構造化出力をMarkdownレポートへ
// 組み立てる。純粋関数であり、同じ入力からは常にバイト単位で同一の
// 出力を生成する。I/Oや副作用は持たない。
package report

import (
	"fmt"
	"strings"

	"github.com/hitoshi/reviewgen/internal/model"
)

// generalThemeID は未分類エビデンスを集めるグループの内部ID。
const generalThemeID = "__general__"

// Assemble はパイプライン出力とタイムフレームから単一のMarkdown文書を生成する。
// セクション順は固定: ヘッダー → サマリー → テーマ → インパクト項目 →
// STARストーリー → 自己評価 → エビデンス付録。
// 裏付けデータが空のセクションは見出しごと省略される。
func Assemble(result *model.PipelineResult, timeframe *model.Timeframe) string {
	if result == nil {
		result = &model.PipelineResult{}
	}

	var lines []string
	push := func(ls ...string) {
		lines = append(lines, ls...)
	}

	var themeList []model.ThemeEntry
	if result.Themes != nil {
		themeList = result.Themes.Themes
	}
	var top10 []model.Bullet
	var byTheme []model.BulletsByTheme
	if result.Bullets != nil {
		top10 = result.Bullets.Top10BulletsOverall
		byTheme = result.Bullets.BulletsByTheme
	}
	var storyList []model.Story
	if result.Stories != nil {
		storyList = result.Stories.Stories
	}
	sections := &model.SelfEvalSections{}
	if result.SelfEval != nil && result.SelfEval.Sections != nil {
		sections = result.SelfEval.Sections
	}

	// ── ヘッダー ──
	push("# Annual Review Report")
	if timeframe != nil && timeframe.StartDate != "" && timeframe.EndDate != "" {
		push(fmt.Sprintf("*%s – %s*", timeframe.StartDate, timeframe.EndDate))
	}
	push("")

	// ── サマリー ──
	if summary := sections.Summary; summary != nil && summary.Text != "" {
		push("---", "", "## Summary", "", summary.Text)
		if len(summary.Evidence) > 0 {
			push("", fmt.Sprintf("*Sources: %s*", evidenceLinks(summary.Evidence)))
		}
		push("")
	}

	// ── テーマ ──
	if len(themeList) > 0 {
		push("---", "", "## Themes", "")
		for i, t := range themeList {
			push(fmt.Sprintf("### %d. %s", i+1, t.ThemeName))
			if t.OneLiner != "" {
				push("", "> "+t.OneLiner)
			}
			if t.WhyItMatters != "" {
				push("", "**Why it matters:** "+t.WhyItMatters)
			}
			if t.Confidence != "" {
				push("", fmt.Sprintf("*Confidence: %s*", t.Confidence))
			}
			if t.Notes != "" {
				push("", fmt.Sprintf("*Notes: %s*", t.Notes))
			}
			if len(t.AnchorEvidence) > 0 {
				push("", fmt.Sprintf("*Evidence: %s*", titleLinks(t.AnchorEvidence)))
			}
			push("")
		}
	}

	// ── インパクト項目 ──
	if len(top10) > 0 || len(byTheme) > 0 {
		push("---", "", "## Impact Bullets", "")
		if len(top10) > 0 {
			push("### Top 10 Bullets", "")
			for _, b := range top10 {
				push("- " + b.Text + bulletRefs(b))
			}
			push("")
		}
		if len(byTheme) > 0 {
			themeNames := make(map[string]string, len(themeList))
			for _, t := range themeList {
				themeNames[t.ThemeID] = t.ThemeName
			}
			for _, bt := range byTheme {
				name := themeNames[bt.ThemeID]
				if name == "" {
					name = bt.ThemeID
				}
				push("### "+name, "")
				for _, b := range bt.Bullets {
					push("- " + b.Text + bulletRefs(b))
				}
				push("")
			}
		}
	}

	// ── STARストーリー ──
	if len(storyList) > 0 {
		push("---", "", "## STAR Stories", "")
		for _, s := range storyList {
			push("### " + s.Title)
			if s.Situation != "" {
				push("", "**Situation:** "+s.Situation)
			}
			if s.Task != "" {
				push("", "**Task:** "+s.Task)
			}
			if len(s.Actions) > 0 {
				push("", "**Actions:**")
				for _, a := range s.Actions {
					push("- " + a)
				}
			}
			if len(s.Results) > 0 {
				push("", "**Results:**")
				for _, r := range s.Results {
					push("- " + r)
				}
			}
			if len(s.Evidence) > 0 {
				push("", fmt.Sprintf("*Evidence: %s*", titleLinks(s.Evidence)))
			}
			if s.Confidence != "" {
				push("", fmt.Sprintf("*Confidence: %s*", s.Confidence))
			}
			push("")
		}
	}

	// ── 自己評価 ──
	hasAnySection := sections.Summary != nil || len(sections.KeyAccomplishments) > 0 ||
		sections.HowIWorked != nil || sections.Growth != nil || len(sections.NextYearGoals) > 0

	if hasAnySection {
		push("---", "", "## Self-Evaluation", "")

		if len(sections.KeyAccomplishments) > 0 {
			push("### Key Accomplishments", "")
			for _, item := range sections.KeyAccomplishments {
				push("- " + item.Text + bulletRefs(item))
			}
			push("")
		}

		if sections.HowIWorked != nil && sections.HowIWorked.Text != "" {
			push("### How I Worked", "", sections.HowIWorked.Text)
			if len(sections.HowIWorked.Evidence) > 0 {
				push("", fmt.Sprintf("*Sources: %s*", evidenceLinks(sections.HowIWorked.Evidence)))
			}
			push("")
		}

		if sections.Growth != nil && sections.Growth.Text != "" {
			push("### Growth", "", sections.Growth.Text)
			if len(sections.Growth.Evidence) > 0 {
				push("", fmt.Sprintf("*Sources: %s*", evidenceLinks(sections.Growth.Evidence)))
			}
			push("")
		}

		if len(sections.NextYearGoals) > 0 {
			push("### Next Year Goals", "")
			for _, g := range sections.NextYearGoals {
				push("- " + g.Text + bulletRefs(g))
			}
			push("")
		}
	}

	// ── エビデンス付録（テーマごとにグルーピング） ──
	appendix := buildAppendix(themeList, top10, byTheme, storyList, sections)
	if len(appendix) > 0 {
		push("---", "", "## Evidence Appendix", "")
		for _, group := range appendix {
			push("### "+group.name, "")
			push("| ID | Title | URL |")
			push("|----|-------|-----|")
			for _, e := range group.refs {
				push(fmt.Sprintf("| %s | %s | %s |", e.ID, escapeTableCell(e.Title), e.URL))
			}
			push("")
		}
	}

	return strings.Join(lines, "\n")
}

// themeGroup は付録の1グループ（テーマ名と重複排除済み参照）を表す。
type themeGroup struct {
	id   string
	name string
	refs []model.EvidenceRef
}

// buildAppendix は文書を固定順で走査してエビデンス参照をテーマ別に集める。
// 走査順: テーマ → 全体トップ項目 → テーマ別項目 → ストーリー → 自己評価。
// 重複排除キーはurl（無ければid）で、全グループを跨ぐ単一の集合を使う。
// 同じ参照が複数テーマに属する場合、走査順で先に到達したテーマの下に1回だけ載る。
// 参照が空のグループは省略され、全グループが空なら付録自体が省略される。
func buildAppendix(
	themeList []model.ThemeEntry,
	top10 []model.Bullet,
	byTheme []model.BulletsByTheme,
	storyList []model.Story,
	sections *model.SelfEvalSections,
) []*themeGroup {
	var groups []*themeGroup
	groupByID := make(map[string]*themeGroup)

	for _, t := range themeList {
		if t.ThemeID == "" {
			continue
		}
		name := t.ThemeName
		if name == "" {
			name = t.ThemeID
		}
		g := &themeGroup{id: t.ThemeID, name: name}
		groups = append(groups, g)
		groupByID[t.ThemeID] = g
	}

	general := &themeGroup{id: generalThemeID, name: "General"}
	groups = append(groups, general)
	groupByID[generalThemeID] = general

	seen := make(map[string]struct{})
	add := func(themeID string, refs []model.EvidenceRef) {
		group, ok := groupByID[themeID]
		if themeID == "" || !ok {
			group = general
		}
		for _, e := range refs {
			key := e.URL
			if key == "" {
				key = e.ID
			}
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			group.refs = append(group.refs, e)
		}
	}

	for _, t := range themeList {
		add(t.ThemeID, t.AnchorEvidence)
	}
	for _, b := range top10 {
		add(b.ThemeID, b.Evidence)
	}
	for _, bt := range byTheme {
		for _, b := range bt.Bullets {
			add(bt.ThemeID, b.Evidence)
		}
	}
	for _, s := range storyList {
		add(s.ThemeID, s.Evidence)
	}
	if sections.Summary != nil {
		add("", sections.Summary.Evidence)
	}
	for _, item := range sections.KeyAccomplishments {
		add("", item.Evidence)
	}
	if sections.HowIWorked != nil {
		add("", sections.HowIWorked.Evidence)
	}
	if sections.Growth != nil {
		add("", sections.Growth.Evidence)
	}
	for _, g := range sections.NextYearGoals {
		add("", g.Evidence)
	}

	var nonEmpty []*themeGroup
	for _, g := range groups {
		if len(g.refs) > 0 {
			nonEmpty = append(nonEmpty, g)
		}
	}
	return nonEmpty
}

// evidenceLinks は参照リストを「[id|title|ref](url)」のリンク列にする。
func evidenceLinks(refs []model.EvidenceRef) string {
	parts := make([]string, len(refs))
	for i, e := range refs {
		label := e.ID
		if label == "" {
			label = e.Title
		}
		if label == "" {
			label = "ref"
		}
		parts[i] = fmt.Sprintf("[%s](%s)", label, e.URL)
	}
	return strings.Join(parts, ", ")
}

// titleLinks はタイトル優先のリンク列にする（テーマ・ストーリー用）。
func titleLinks(refs []model.EvidenceRef) string {
	parts := make([]string, len(refs))
	for i, e := range refs {
		label := e.Title
		if label == "" {
			label = e.ID
		}
		parts[i] = fmt.Sprintf("[%s](%s)", label, e.URL)
	}
	return strings.Join(parts, ", ")
}

// bulletRefs は項目末尾に付ける参照の括弧書きを返す。参照が無ければ空文字。
func bulletRefs(b model.Bullet) string {
	if len(b.Evidence) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s)", evidenceLinks(b.Evidence))
}

// escapeTableCell はMarkdownテーブルを壊す文字をエスケープする。
func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	return s
}
