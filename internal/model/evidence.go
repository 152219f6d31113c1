package model

// Timeframe は活動収集の対象期間を表す。日付はYYYY-MM-DD形式。
type Timeframe struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Contribution は1件の活動記録を表す。
// コアが解釈するのはrepoとidのみで、それ以外のフィールドは
// 正規化器が付与した任意の記述フィールドとしてそのまま保持する。
type Contribution map[string]any

// Repo はrepoフィールドを文字列として返す。未設定の場合は空文字。
func (c Contribution) Repo() string {
	s, _ := c["repo"].(string)
	return s
}

// ID はidフィールドを文字列として返す。未設定の場合は空文字。
func (c Contribution) ID() string {
	s, _ := c["id"].(string)
	return s
}

// Evidence は正規化済みの活動記録一式を表す。
type Evidence struct {
	Timeframe     Timeframe      `json:"timeframe"`
	Contributions []Contribution `json:"contributions"`
	RoleContext   any            `json:"role_context_optional,omitempty"`
}
