package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/reviewgen/internal/github"
	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/model"
)

func newCollectHandler(jobs *mockJobService, collector *mockCollector, finder *mockSessionFinder) (*CollectHandler, *mockJobRecorder) {
	recorder := &mockJobRecorder{}
	return NewCollectHandler(jobs, collector, finder, recorder, time.Minute), recorder
}

func collectReq(t *testing.T, body string, sessionID string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/collect", strings.NewReader(body))
	if sessionID != "" {
		r = r.WithContext(middleware.ContextWithSessionID(r.Context(), sessionID))
	}
	return r
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestCollect_Success(t *testing.T) {
	jobs := newMockJobService()
	collector := &mockCollector{
		collectFunc: func(ctx context.Context, token, start, end string) (*github.RawActivity, error) {
			if token != "gho_body_token" {
				t.Errorf("token = %q, want body token", token)
			}
			if start != "2025-01-01" || end != "2025-12-31" {
				t.Errorf("range = %s..%s", start, end)
			}
			return &github.RawActivity{
				Login: "octocat",
				PullRequests: []map[string]any{{
					"repository_url": "https://api.github.com/repos/org/a",
					"number":         float64(1),
					"title":          "t",
					"html_url":       "https://github.com/org/a/pull/1",
				}},
			}, nil
		},
	}
	h, recorder := newCollectHandler(jobs, collector, &mockSessionFinder{})

	w := httptest.NewRecorder()
	h.Collect(w, collectReq(t, `{"token":"gho_body_token","start_date":"2025-01-01","end_date":"2025-12-31"}`, "sess_a"))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["job_id"] != "job_test_1" {
		t.Errorf("job_id = %q", resp["job_id"])
	}

	if len(jobs.created) != 1 || jobs.created[0] != "collect" {
		t.Errorf("created jobs = %v, want [collect]", jobs.created)
	}
	if len(recorder.started) != 1 || recorder.started[0] != "collect" {
		t.Errorf("recorded starts = %v, want [collect]", recorder.started)
	}

	// workの結果は正規化済みエビデンス
	evidence, ok := jobs.workResult.(*model.Evidence)
	if !ok {
		t.Fatalf("workResult = %T, want *model.Evidence", jobs.workResult)
	}
	if len(evidence.Contributions) != 1 || evidence.Contributions[0].ID() != "org/a#1" {
		t.Errorf("contributions = %+v", evidence.Contributions)
	}
	if evidence.Timeframe.StartDate != "2025-01-01" {
		t.Errorf("StartDate = %q", evidence.Timeframe.StartDate)
	}
}

func TestCollect_NoSession_Unauthorized(t *testing.T) {
	h, _ := newCollectHandler(newMockJobService(), &mockCollector{}, &mockSessionFinder{})

	w := httptest.NewRecorder()
	h.Collect(w, collectReq(t, `{"start_date":"2025-01-01","end_date":"2025-12-31"}`, ""))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCollect_InvalidDate_BadRequest(t *testing.T) {
	jobs := newMockJobService()
	h, recorder := newCollectHandler(jobs, &mockCollector{}, &mockSessionFinder{})

	cases := []string{
		`{"token":"x","start_date":"2025/01/01","end_date":"2025-12-31"}`,
		`{"token":"x","start_date":"2025-01-01","end_date":"Dec 31"}`,
		`{"token":"x"}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		h.Collect(w, collectReq(t, body, "sess_a"))

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400 for body %s", w.Code, body)
		}
		if got := decodeErrorBody(t, w)["code"]; got != model.ErrCodeInvalidDate {
			t.Errorf("code = %q, want %q", got, model.ErrCodeInvalidDate)
		}
	}

	// 検証エラーではジョブが作成されない
	if len(jobs.created) != 0 {
		t.Errorf("created jobs = %v, want none", jobs.created)
	}
	if len(recorder.started) != 0 {
		t.Errorf("recorded starts = %v, want none", recorder.started)
	}
}

func TestCollect_MalformedJSON_BadRequest(t *testing.T) {
	h, _ := newCollectHandler(newMockJobService(), &mockCollector{}, &mockSessionFinder{})

	w := httptest.NewRecorder()
	h.Collect(w, collectReq(t, `{not json`, "sess_a"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCollect_TokenFallsBackToSession(t *testing.T) {
	var usedToken string
	collector := &mockCollector{
		collectFunc: func(ctx context.Context, token, start, end string) (*github.RawActivity, error) {
			usedToken = token
			return &github.RawActivity{}, nil
		},
	}
	finder := &mockSessionFinder{sessions: map[string]*model.Session{
		"sess_a": {ID: "sess_a", AccessToken: "gho_session_token"},
	}}
	h, _ := newCollectHandler(newMockJobService(), collector, finder)

	w := httptest.NewRecorder()
	h.Collect(w, collectReq(t, `{"start_date":"2025-01-01","end_date":"2025-12-31"}`, "sess_a"))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	if usedToken != "gho_session_token" {
		t.Errorf("token = %q, want session token", usedToken)
	}
}

func TestCollect_NoTokenAnywhere_Unauthorized(t *testing.T) {
	// セッションは存在するがトークンを持たない
	finder := &mockSessionFinder{sessions: map[string]*model.Session{
		"sess_a": {ID: "sess_a"},
	}}
	jobs := newMockJobService()
	h, _ := newCollectHandler(jobs, &mockCollector{}, finder)

	w := httptest.NewRecorder()
	h.Collect(w, collectReq(t, `{"start_date":"2025-01-01","end_date":"2025-12-31"}`, "sess_a"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := decodeErrorBody(t, w)["code"]; got != model.ErrCodeTokenRequired {
		t.Errorf("code = %q, want %q", got, model.ErrCodeTokenRequired)
	}
	if len(jobs.created) != 0 {
		t.Errorf("created jobs = %v, want none", jobs.created)
	}
}

func TestCollect_ProviderError_FailsJob(t *testing.T) {
	jobs := newMockJobService()
	collector := &mockCollector{
		collectFunc: func(ctx context.Context, token, start, end string) (*github.RawActivity, error) {
			return nil, context.DeadlineExceeded
		},
	}
	h, _ := newCollectHandler(jobs, collector, &mockSessionFinder{})

	w := httptest.NewRecorder()
	h.Collect(w, collectReq(t, `{"token":"x","start_date":"2025-01-01","end_date":"2025-12-31"}`, "sess_a"))

	// ジョブ自体は202で受理され、失敗はジョブ状態として現れる
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if jobs.workErr == nil {
		t.Error("workErr = nil, want collect error")
	}
}
