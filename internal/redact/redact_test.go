package redact

import (
	"reflect"
	"testing"

	"github.com/hitoshi/reviewgen/internal/model"
)

func contribution(id, repo, title, url string) model.Contribution {
	return model.Contribution{
		"id":    id,
		"repo":  repo,
		"type":  "authored_pr",
		"title": title,
		"url":   url,
	}
}

func TestExtractRepoNames_DedupInsertionOrder(t *testing.T) {
	e := &model.Evidence{
		Contributions: []model.Contribution{
			contribution("org/a#1", "org/a", "first", ""),
			contribution("org/b#2", "org/b", "second", ""),
			contribution("org/a#3", "org/a", "third", ""),
		},
	}

	got := ExtractRepoNames(e)
	want := []string{"org/a", "org/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractRepoNames() = %v, want %v", got, want)
	}
}

func TestExtractRepoNames_SkipsEmptyRepo(t *testing.T) {
	e := &model.Evidence{
		Contributions: []model.Contribution{
			{"id": "x#1", "title": "no repo field"},
			contribution("org/a#1", "org/a", "", ""),
		},
	}

	got := ExtractRepoNames(e)
	if !reflect.DeepEqual(got, []string{"org/a"}) {
		t.Errorf("ExtractRepoNames() = %v, want [org/a]", got)
	}
}

func TestFilterExcludedContributions_EmptyLists_Identity(t *testing.T) {
	e := &model.Evidence{
		Contributions: []model.Contribution{contribution("org/a#1", "org/a", "", "")},
	}

	got := FilterExcludedContributions(e, nil, nil)
	if got != e {
		t.Error("want same pointer when both exclusion lists are empty")
	}
}

func TestFilterExcludedContributions_ByRepoAndID(t *testing.T) {
	e := &model.Evidence{
		Timeframe: model.Timeframe{StartDate: "2025-01-01", EndDate: "2025-12-31"},
		Contributions: []model.Contribution{
			contribution("org/a#1", "org/a", "kept", ""),
			contribution("org/secret#2", "org/secret", "excluded by repo", ""),
			contribution("org/b#3", "org/b", "excluded by id", ""),
		},
	}

	got := FilterExcludedContributions(e, []string{"org/secret"}, []string{"org/b#3"})
	if got == e {
		t.Fatal("want a new evidence value when filtering")
	}
	if len(got.Contributions) != 1 {
		t.Fatalf("contributions = %d, want 1", len(got.Contributions))
	}
	if got.Contributions[0].ID() != "org/a#1" {
		t.Errorf("remaining id = %q, want %q", got.Contributions[0].ID(), "org/a#1")
	}
	// タイムフレームは引き継がれる
	if got.Timeframe.StartDate != "2025-01-01" {
		t.Errorf("StartDate = %q, want carried over", got.Timeframe.StartDate)
	}
	// 元のエビデンスは変更されない
	if len(e.Contributions) != 3 {
		t.Errorf("original contributions = %d, want 3 (unmodified)", len(e.Contributions))
	}
}

func TestRedactRepoNames_EmptyNames_Identity(t *testing.T) {
	v := map[string]any{"title": "worked on org/a"}
	got := RedactRepoNames(v, nil)
	if !reflect.DeepEqual(got, v) {
		t.Errorf("RedactRepoNames(empty names) = %v, want unchanged", got)
	}
}

func TestRedactRepoNames_NestedStructures(t *testing.T) {
	v := map[string]any{
		"title": "fixed race in org/a watcher",
		"links": []any{"https://github.com/org/a/pull/1", 42},
		"inner": map[string]any{"note": "also touched org/b"},
	}

	got := RedactRepoNames(v, []string{"org/a", "org/b"}).(map[string]any)
	if got["title"] != "fixed race in internal repo watcher" {
		t.Errorf("title = %q", got["title"])
	}
	links := got["links"].([]any)
	if links[0] != "https://github.com/internal repo/pull/1" {
		t.Errorf("url = %q, want placeholder embedded in url", links[0])
	}
	if links[1] != 42 {
		t.Errorf("non-string scalar = %v, want passed through", links[1])
	}
	inner := got["inner"].(map[string]any)
	if inner["note"] != "also touched internal repo" {
		t.Errorf("nested note = %q", inner["note"])
	}

	// 元の値は変更されない
	if v["title"] != "fixed race in org/a watcher" {
		t.Error("input map was mutated")
	}
}

func TestEvidence_EndToEnd(t *testing.T) {
	e := &model.Evidence{
		Contributions: []model.Contribution{
			contribution("org/a#1", "org/a", "improve org/a build", "https://github.com/org/a/pull/1"),
		},
	}

	names := ExtractRepoNames(e)
	got := Evidence(e, names)

	c := got.Contributions[0]
	if c["id"] != "internal repo#1" {
		t.Errorf("id = %q, want %q", c["id"], "internal repo#1")
	}
	if c["repo"] != Placeholder {
		t.Errorf("repo = %q, want %q", c["repo"], Placeholder)
	}
	if c["title"] != "improve internal repo build" {
		t.Errorf("title = %q", c["title"])
	}
	if c["url"] != "https://github.com/internal repo/pull/1" {
		t.Errorf("url = %q", c["url"])
	}

	// 元のエビデンスは変更されない
	if e.Contributions[0]["id"] != "org/a#1" {
		t.Error("input evidence was mutated")
	}
}

func TestResult_RedactsAllSections(t *testing.T) {
	r := &model.PipelineResult{
		Themes: &model.ThemesOutput{Themes: []model.ThemeEntry{{
			ThemeID:   "t1",
			ThemeName: "Reliability of org/a",
			OneLiner:  "hardened org/a",
			AnchorEvidence: []model.EvidenceRef{{
				ID: "org/a#1", Title: "fix org/a", URL: "https://github.com/org/a/pull/1",
			}},
		}}},
		Bullets: &model.BulletsOutput{
			Top10BulletsOverall: []model.Bullet{{Text: "shipped org/a v2", ThemeID: "t1"}},
			BulletsByTheme: []model.BulletsByTheme{{
				ThemeID: "t1",
				Bullets: []model.Bullet{{Text: "refactored org/a core"}},
			}},
		},
		Stories: &model.StoriesOutput{Stories: []model.Story{{
			Title:   "Rescuing org/a",
			Actions: []string{"profiled org/a hot path"},
			Results: []string{"org/a p99 halved"},
		}}},
		SelfEval: &model.SelfEvalOutput{Sections: &model.SelfEvalSections{
			Summary: &model.SelfEvalSection{Text: "focused on org/a"},
			NextYearGoals: []model.Bullet{{Text: "extend org/a"}},
		}},
	}

	got := Result(r, []string{"org/a"})

	if got.Themes.Themes[0].ThemeName != "Reliability of internal repo" {
		t.Errorf("theme name = %q", got.Themes.Themes[0].ThemeName)
	}
	if got.Themes.Themes[0].AnchorEvidence[0].ID != "internal repo#1" {
		t.Errorf("anchor id = %q", got.Themes.Themes[0].AnchorEvidence[0].ID)
	}
	if got.Bullets.Top10BulletsOverall[0].Text != "shipped internal repo v2" {
		t.Errorf("top bullet = %q", got.Bullets.Top10BulletsOverall[0].Text)
	}
	if got.Bullets.BulletsByTheme[0].Bullets[0].Text != "refactored internal repo core" {
		t.Errorf("theme bullet = %q", got.Bullets.BulletsByTheme[0].Bullets[0].Text)
	}
	if got.Stories.Stories[0].Title != "Rescuing internal repo" {
		t.Errorf("story title = %q", got.Stories.Stories[0].Title)
	}
	if got.Stories.Stories[0].Actions[0] != "profiled internal repo hot path" {
		t.Errorf("story action = %q", got.Stories.Stories[0].Actions[0])
	}
	if got.SelfEval.Sections.Summary.Text != "focused on internal repo" {
		t.Errorf("summary = %q", got.SelfEval.Sections.Summary.Text)
	}
	if got.SelfEval.Sections.NextYearGoals[0].Text != "extend internal repo" {
		t.Errorf("goal = %q", got.SelfEval.Sections.NextYearGoals[0].Text)
	}

	// ThemeIDは識別子なので置換されない
	if got.Bullets.Top10BulletsOverall[0].ThemeID != "t1" {
		t.Errorf("theme id = %q, want untouched", got.Bullets.Top10BulletsOverall[0].ThemeID)
	}

	// 元の結果は変更されない
	if r.Themes.Themes[0].ThemeName != "Reliability of org/a" {
		t.Error("input result was mutated")
	}
}

func TestResult_EmptyNames_Identity(t *testing.T) {
	r := &model.PipelineResult{}
	if got := Result(r, nil); got != r {
		t.Error("want same pointer when name list is empty")
	}
}
