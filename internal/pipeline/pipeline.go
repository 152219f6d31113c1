// Package pipeline は解析パイプライン（テーマ・項目・ストーリー・自己評価の
// 生成）との境界を定義する。パイプライン本体は外部の解析バックエンドであり、
// 本パッケージはステージ単位のHTTP呼び出しと進捗報告のみを担う。
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/reviewgen/internal/model"
)

// Runner は解析パイプラインの実行境界。
// progressはステージの進行に合わせて任意の回数呼ばれる。
type Runner interface {
	Run(ctx context.Context, evidence *model.Evidence, progress func(string)) (*model.PipelineResult, error)
}

// HTTPRunner は解析バックエンドへのHTTP呼び出しでパイプラインを実行する。
type HTTPRunner struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewHTTPRunner はHTTPRunnerを生成する。
func NewHTTPRunner(httpClient *http.Client, logger *slog.Logger, baseURL string) *HTTPRunner {
	return &HTTPRunner{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// stageRequest は各ステージへ渡す入力。後段ステージは前段の出力も受け取る。
type stageRequest struct {
	Evidence *model.Evidence      `json:"evidence"`
	Themes   *model.ThemesOutput  `json:"themes,omitempty"`
	Bullets  *model.BulletsOutput `json:"bullets,omitempty"`
	Stories  *model.StoriesOutput `json:"stories,omitempty"`
}

// Run は4ステージを順に実行し、構造化出力一式を返す。
// いずれかのステージが失敗した場合はステージ名を含むエラーを返す。
func (r *HTTPRunner) Run(ctx context.Context, evidence *model.Evidence, progress func(string)) (*model.PipelineResult, error) {
	result := &model.PipelineResult{}

	progress("generating themes")
	themes := &model.ThemesOutput{}
	if err := r.callStage(ctx, "themes", &stageRequest{Evidence: evidence}, themes); err != nil {
		return nil, err
	}
	result.Themes = themes

	progress("generating bullets")
	bullets := &model.BulletsOutput{}
	if err := r.callStage(ctx, "bullets", &stageRequest{Evidence: evidence, Themes: themes}, bullets); err != nil {
		return nil, err
	}
	result.Bullets = bullets

	progress("generating stories")
	stories := &model.StoriesOutput{}
	if err := r.callStage(ctx, "stories", &stageRequest{Evidence: evidence, Themes: themes}, stories); err != nil {
		return nil, err
	}
	result.Stories = stories

	progress("generating self evaluation")
	selfEval := &model.SelfEvalOutput{}
	req := &stageRequest{Evidence: evidence, Themes: themes, Bullets: bullets, Stories: stories}
	if err := r.callStage(ctx, "self_eval", req, selfEval); err != nil {
		return nil, err
	}
	result.SelfEval = selfEval

	return result, nil
}

// callStage は1ステージ分のHTTP呼び出しを実行し、outへデコードする。
func (r *HTTPRunner) callStage(ctx context.Context, stage string, in *stageRequest, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}

	reqURL := r.baseURL + "/v1/" + stage
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("analysis backend call failed",
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("analysis backend returned error status",
			slog.String("stage", stage),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("stage %s failed with status %d", stage, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}

	return nil
}

// compile-time interface check
var _ Runner = (*HTTPRunner)(nil)
