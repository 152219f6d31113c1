package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/model"
	"github.com/hitoshi/reviewgen/internal/pipeline"
	"github.com/hitoshi/reviewgen/internal/redact"
	"github.com/hitoshi/reviewgen/internal/report"
)

// GenerateHandler は生成ジョブを開始するHTTPハンドラー。
// 除外フィルタ → 解析パイプライン → 任意の伏せ字化 → Markdown組み立て
// を1つのバックグラウンドジョブとして実行する。
type GenerateHandler struct {
	jobs     JobService
	runner   pipeline.Runner
	recorder JobStartedRecorder
	timeout  time.Duration
}

// NewGenerateHandler はGenerateHandlerを生成する。
func NewGenerateHandler(jobs JobService, runner pipeline.Runner, recorder JobStartedRecorder, timeout time.Duration) *GenerateHandler {
	return &GenerateHandler{
		jobs:     jobs,
		runner:   runner,
		recorder: recorder,
		timeout:  timeout,
	}
}

// generateRequest はPOST /api/generateのリクエストボディ。
type generateRequest struct {
	Evidence      *model.Evidence `json:"evidence"`
	ExcludedRepos []string        `json:"excluded_repos"`
	ExcludedIDs   []string        `json:"excluded_ids"`
	Redact        bool            `json:"redact"`
}

// generateResult は生成ジョブの結果ペイロード。
// パイプラインの構造化出力に組み立て済みMarkdownを加えたもの。
type generateResult struct {
	model.PipelineResult
	Markdown string `json:"markdown"`
}

// Generate は生成ジョブを開始する。
// POST /api/generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionRequiredError())
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEvidenceError("リクエストボディがJSONとして解釈できません"))
		return
	}

	if req.Evidence == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEvidenceError("evidenceがありません"))
		return
	}
	if req.Evidence.Timeframe.StartDate == "" || req.Evidence.Timeframe.EndDate == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEvidenceError("timeframeがありません"))
		return
	}

	jobID := h.jobs.Create("generate", sessionID)
	h.recorder.RecordJobStarted("generate")

	timeout := h.timeout
	h.jobs.RunInBackground(jobID, func(progress func(string)) (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// 1. 除外リポジトリ・除外IDのフィルタ（両方空なら恒等）
		evidence := redact.FilterExcludedContributions(req.Evidence, req.ExcludedRepos, req.ExcludedIDs)

		// 2. 解析パイプラインの実行
		result, err := h.runner.Run(ctx, evidence, progress)
		if err != nil {
			return nil, err
		}

		// 3. 出力中のリポジトリ名の伏せ字化（オプトイン）
		if req.Redact {
			progress("redacting repository names")
			result = redact.Result(result, redact.ExtractRepoNames(evidence))
		}

		// 4. Markdownレポートの組み立て
		progress("assembling markdown report")
		markdown := report.Assemble(result, &evidence.Timeframe)

		return &generateResult{
			PipelineResult: *result,
			Markdown:       markdown,
		}, nil
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}
