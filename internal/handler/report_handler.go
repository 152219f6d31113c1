package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/model"
	"github.com/hitoshi/reviewgen/internal/report"
)

// ReportHandler はパイプライン出力からのMarkdown組み立てを同期的に行う
// HTTPハンドラー。組み立ては純粋関数で速いため、ジョブ化しない。
type ReportHandler struct{}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler() *ReportHandler {
	return &ReportHandler{}
}

// reportRequest はPOST /api/reportのリクエストボディ。
type reportRequest struct {
	Themes    *model.ThemesOutput   `json:"themes"`
	Bullets   *model.BulletsOutput  `json:"bullets"`
	Stories   *model.StoriesOutput  `json:"stories"`
	SelfEval  *model.SelfEvalOutput `json:"self_eval"`
	Timeframe *model.Timeframe      `json:"timeframe"`
}

// Assemble は構造化出力を1つのMarkdown文書にして返す。
// POST /api/report
func (h *ReportHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEvidenceError("リクエストボディがJSONとして解釈できません"))
		return
	}

	markdown := report.Assemble(&model.PipelineResult{
		Themes:   req.Themes,
		Bullets:  req.Bullets,
		Stories:  req.Stories,
		SelfEval: req.SelfEval,
	}, req.Timeframe)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(markdown))
}
