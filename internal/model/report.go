package model

// EvidenceRef は生成コンテンツから根拠となる活動を指す軽量ポインタ。
// 同一の活動を複数の参照が指すことがある。重複排除キーはurl（無ければid）。
type EvidenceRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ThemeEntry は解析パイプラインが割り当てた1つのテーマを表す。
type ThemeEntry struct {
	ThemeID        string        `json:"theme_id,omitempty"`
	ThemeName      string        `json:"theme_name,omitempty"`
	OneLiner       string        `json:"one_liner,omitempty"`
	WhyItMatters   string        `json:"why_it_matters,omitempty"`
	Confidence     string        `json:"confidence,omitempty"`
	Notes          string        `json:"notes_or_assumptions,omitempty"`
	AnchorEvidence []EvidenceRef `json:"anchor_evidence,omitempty"`
}

// ThemesOutput はテーマ生成ステージの出力。
type ThemesOutput struct {
	Themes []ThemeEntry `json:"themes,omitempty"`
}

// Bullet は1件のインパクト項目を表す。
type Bullet struct {
	Text     string        `json:"text,omitempty"`
	Evidence []EvidenceRef `json:"evidence,omitempty"`
	ThemeID  string        `json:"theme_id,omitempty"`
}

// BulletsByTheme はテーマごとにまとめた項目群を表す。
type BulletsByTheme struct {
	ThemeID string   `json:"theme_id,omitempty"`
	Bullets []Bullet `json:"bullets,omitempty"`
}

// BulletsOutput は項目生成ステージの出力。
type BulletsOutput struct {
	Top10BulletsOverall []Bullet         `json:"top_10_bullets_overall,omitempty"`
	BulletsByTheme      []BulletsByTheme `json:"bullets_by_theme,omitempty"`
}

// Story はSTAR形式のストーリーを表す。
type Story struct {
	Title      string        `json:"title,omitempty"`
	Situation  string        `json:"situation,omitempty"`
	Task       string        `json:"task,omitempty"`
	Actions    []string      `json:"actions,omitempty"`
	Results    []string      `json:"results,omitempty"`
	Evidence   []EvidenceRef `json:"evidence,omitempty"`
	Confidence string        `json:"confidence,omitempty"`
	ThemeID    string        `json:"theme_id,omitempty"`
}

// StoriesOutput はストーリー生成ステージの出力。
type StoriesOutput struct {
	Stories []Story `json:"stories,omitempty"`
}

// SelfEvalSection は自己評価の1セクション（本文と根拠）を表す。
type SelfEvalSection struct {
	Text     string        `json:"text,omitempty"`
	Evidence []EvidenceRef `json:"evidence,omitempty"`
}

// SelfEvalSections は自己評価の全セクションを表す。
// nil/空のフィールドは「セクションなし」を意味し、レポートから省略される。
type SelfEvalSections struct {
	Summary            *SelfEvalSection `json:"summary,omitempty"`
	KeyAccomplishments []Bullet         `json:"key_accomplishments,omitempty"`
	HowIWorked         *SelfEvalSection `json:"how_i_worked,omitempty"`
	Growth             *SelfEvalSection `json:"growth,omitempty"`
	NextYearGoals      []Bullet         `json:"next_year_goals,omitempty"`
}

// SelfEvalOutput は自己評価生成ステージの出力。
type SelfEvalOutput struct {
	Sections *SelfEvalSections `json:"sections,omitempty"`
}

// PipelineResult は解析パイプライン4ステージの構造化出力一式。
type PipelineResult struct {
	Themes   *ThemesOutput   `json:"themes,omitempty"`
	Bullets  *BulletsOutput  `json:"bullets,omitempty"`
	Stories  *StoriesOutput  `json:"stories,omitempty"`
	SelfEval *SelfEvalOutput `json:"self_eval,omitempty"`
}
