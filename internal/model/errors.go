// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, pipeline, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidDate     = "INVALID_DATE"
	ErrCodeTokenRequired   = "TOKEN_REQUIRED"
	ErrCodeInvalidEvidence = "INVALID_EVIDENCE"
	ErrCodeJobNotFound     = "JOB_NOT_FOUND"
	ErrCodeJobForbidden    = "JOB_FORBIDDEN"
	ErrCodeUpstreamAuth    = "UPSTREAM_AUTH"
	ErrCodePipelineFailed  = "PIPELINE_FAILED"
	ErrCodeSessionRequired = "SESSION_REQUIRED"
)

// NewInvalidDateError は日付形式エラーを生成する。
func NewInvalidDateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  "start_dateとend_dateはYYYY-MM-DD形式で指定してください。",
		Category: "validation",
		Action:   "日付の形式を確認してください。",
	}
}

// NewTokenRequiredError はトークン未指定エラーを生成する。
func NewTokenRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenRequired,
		Message:  "アクセストークンが指定されておらず、ログインセッションもありません。",
		Category: "auth",
		Action:   "ログインするか、リクエストボディでtokenを指定してください。",
	}
}

// NewInvalidEvidenceError は不正なエビデンスエラーを生成する。
func NewInvalidEvidenceError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEvidence,
		Message:  fmt.Sprintf("エビデンスが不正です: %s", reason),
		Category: "validation",
		Action:   "収集APIの出力をそのまま渡しているか確認してください。",
	}
}

// NewJobNotFoundError はジョブ未検出エラーを生成する。
func NewJobNotFoundError(jobID string) *APIError {
	return &APIError{
		Code:     ErrCodeJobNotFound,
		Message:  fmt.Sprintf("指定されたジョブが見つかりません: %s", jobID),
		Category: "validation",
		Action:   "ジョブIDを確認してください。",
	}
}

// NewJobForbiddenError は他セッションのジョブ参照エラーを生成する。
func NewJobForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeJobForbidden,
		Message:  "このジョブを参照する権限がありません。",
		Category: "auth",
		Action:   "自身のセッションで開始したジョブのみ参照できます。",
	}
}

// NewSessionRequiredError は未認証エラーを生成する。
func NewSessionRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionRequired,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "GitHubでログインしてから再度お試しください。",
	}
}
