package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReportAssemble_Success(t *testing.T) {
	h := NewReportHandler()

	body := `{
		"timeframe": {"start_date": "2025-01-01", "end_date": "2025-12-31"},
		"themes": {"themes": [{"theme_id": "t1", "theme_name": "Reliability", "one_liner": "kept it up"}]},
		"bullets": {"top_10_bullets_overall": [{"text": "halved build time", "theme_id": "t1"}]}
	}`
	r := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Assemble(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q, want text/markdown", ct)
	}

	md := w.Body.String()
	for _, want := range []string{
		"# Annual Review Report",
		"*2025-01-01 – 2025-12-31*",
		"### 1. Reliability",
		"- halved build time",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in markdown:\n%s", want, md)
		}
	}
}

func TestReportAssemble_EmptyBody_HeaderOnly(t *testing.T) {
	h := NewReportHandler()

	r := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.Assemble(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	md := w.Body.String()
	if !strings.HasPrefix(md, "# Annual Review Report") {
		t.Errorf("markdown = %q", md)
	}
	if strings.Contains(md, "## ") {
		t.Errorf("empty input must produce header only:\n%s", md)
	}
}

func TestReportAssemble_MalformedJSON(t *testing.T) {
	h := NewReportHandler()

	r := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(`{broken`))
	w := httptest.NewRecorder()
	h.Assemble(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
