package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/hitoshi/reviewgen/internal/github"
	"github.com/hitoshi/reviewgen/internal/job"
	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/model"
	"github.com/hitoshi/reviewgen/internal/normalize"
)

// dateYYYYMMDD は収集期間の日付形式。
var dateYYYYMMDD = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// JobService はハンドラーが必要とするジョブストア操作のインターフェース。
type JobService interface {
	Create(jobType, ownerID string) string
	Get(id string) (*model.Job, bool)
	Latest(ownerID string) *model.Job
	RunInBackground(id string, work job.Work)
}

// CollectorInterface はGitHub活動収集クライアントのインターフェース。
type CollectorInterface interface {
	Collect(ctx context.Context, token, start, end string) (*github.RawActivity, error)
}

// JobStartedRecorder はジョブ開始メトリクスの記録インターフェース。
type JobStartedRecorder interface {
	RecordJobStarted(jobType string)
}

// CollectHandler は収集ジョブを開始するHTTPハンドラー。
// 重い収集処理はバックグラウンドジョブとして実行し、
// クライアントはジョブIDで状態をポーリングする。
type CollectHandler struct {
	jobs      JobService
	collector CollectorInterface
	sessions  middleware.SessionFinder
	recorder  JobStartedRecorder
	timeout   time.Duration
}

// NewCollectHandler はCollectHandlerを生成する。
func NewCollectHandler(jobs JobService, collector CollectorInterface, sessions middleware.SessionFinder, recorder JobStartedRecorder, timeout time.Duration) *CollectHandler {
	return &CollectHandler{
		jobs:      jobs,
		collector: collector,
		sessions:  sessions,
		recorder:  recorder,
		timeout:   timeout,
	}
}

// collectRequest はPOST /api/collectのリクエストボディ。
// tokenが省略された場合はセッションに保存されたトークンを使う。
type collectRequest struct {
	Token     string `json:"token"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Collect は収集ジョブを開始する。
// POST /api/collect
// 入力検証エラーは状態を変更する前に同期的に返す。
func (h *CollectHandler) Collect(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionRequiredError())
		return
	}

	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEvidenceError("リクエストボディがJSONとして解釈できません"))
		return
	}

	if !dateYYYYMMDD.MatchString(req.StartDate) || !dateYYYYMMDD.MatchString(req.EndDate) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError())
		return
	}

	// トークンの解決: リクエスト指定が優先、無ければセッションのトークン
	token := req.Token
	if token == "" {
		if sess := h.sessions.Get(sessionID); sess != nil {
			token = sess.AccessToken
		}
	}
	if token == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenRequiredError())
		return
	}

	jobID := h.jobs.Create("collect", sessionID)
	h.recorder.RecordJobStarted("collect")

	timeout := h.timeout
	h.jobs.RunInBackground(jobID, func(progress func(string)) (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		progress("collecting github activity")
		raw, err := h.collector.Collect(ctx, token, req.StartDate, req.EndDate)
		if err != nil {
			return nil, err
		}

		progress("normalizing evidence")
		return normalize.Normalize(raw, req.StartDate, req.EndDate), nil
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}
