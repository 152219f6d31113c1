package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/model"
)

// JobHandler はジョブ状態ポーリングのHTTPハンドラー。
type JobHandler struct {
	jobs JobService
}

// NewJobHandler はJobHandlerを生成する。
func NewJobHandler(jobs JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// jobResponse はジョブ状態レスポンス。
// progressは実行中のみ値を持ち、終端状態ではnullになる（意味のある遷移）。
type jobResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Status      model.JobStatus `json:"status"`
	CreatedAt   string          `json:"created_at"`
	Progress    *string         `json:"progress"`
	Result      any             `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
	ErrorStatus int             `json:"error_status,omitempty"`
}

// toJobResponse はジョブレコードをレスポンスに変換する。
// 失敗したジョブにはエラーメッセージの文言から分類した
// ステータスコード（認証系は401、それ以外は500）とエラーコードを付与する。
func toJobResponse(j *model.Job) jobResponse {
	resp := jobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339),
		Progress:  j.Progress,
		Result:    j.Result,
		Error:     j.Error,
	}
	if j.Status == model.JobStatusFailed {
		resp.ErrorStatus, resp.ErrorCode = statusForJobError(j.Error)
	}
	return resp
}

// statusForJobError はジョブエラーの文言からHTTPステータス相当とエラーコードを分類する。
// 上流プロバイダーの認証失敗は401/403をメッセージに含めて伝播してくる。
func statusForJobError(msg string) (int, string) {
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return http.StatusUnauthorized, model.ErrCodeUpstreamAuth
	}
	return http.StatusInternalServerError, model.ErrCodePipelineFailed
}

// GetJob は指定ジョブの状態を返す。
// GET /api/jobs/{id}
// 他セッションが所有するジョブへのアクセスは403。
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionRequiredError())
		return
	}

	jobID := chi.URLParam(r, "id")
	j, ok := h.jobs.Get(jobID)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewJobNotFoundError(jobID))
		return
	}

	if j.CreatedBy != "" && j.CreatedBy != sessionID {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewJobForbiddenError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJobResponse(j))
}

// GetLatestJob は呼び出し元セッションの最新ジョブを返す。
// GET /api/jobs/latest
// セッションのジョブが1件もない場合は404（特定ID未検出とは別の意味）。
func (h *JobHandler) GetLatestJob(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionRequiredError())
		return
	}

	j := h.jobs.Latest(sessionID)
	if j == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeJobNotFound,
			Message:  "このセッションで開始されたジョブはありません。",
			Category: "validation",
			Action:   "収集または生成を開始してください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toJobResponse(j))
}
