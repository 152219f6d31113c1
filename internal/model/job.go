package model

import "time"

// JobStatus はバックグラウンドジョブの状態を表す。
type JobStatus string

const (
	// JobStatusPending は作成直後で実行開始前の状態。
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning はバックグラウンド実行中の状態。
	JobStatusRunning JobStatus = "running"
	// JobStatusDone は正常終了した終端状態。
	JobStatusDone JobStatus = "done"
	// JobStatusFailed は失敗した終端状態。
	JobStatusFailed JobStatus = "failed"
)

// Terminal はこの状態が終端（done/failed）かどうかを返す。
// 終端状態に達したジョブは再オープンされない。
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Job は追跡対象の非同期処理単位を表す。
// ProgressはRunning中のみ意味を持ち、終端遷移でnilへ戻る。
// nilへの遷移は「進捗表示の終了」を示す意味のある更新として扱う。
type Job struct {
	ID        string
	Type      string
	Status    JobStatus
	CreatedAt time.Time
	CreatedBy string // 所有セッションID。空文字は無所属。
	Progress  *string
	Result    any
	Error     string
}
