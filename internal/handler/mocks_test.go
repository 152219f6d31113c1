package handler

import (
	"context"
	"sync"

	"github.com/hitoshi/reviewgen/internal/github"
	"github.com/hitoshi/reviewgen/internal/job"
	"github.com/hitoshi/reviewgen/internal/middleware"
	"github.com/hitoshi/reviewgen/internal/model"
	"github.com/hitoshi/reviewgen/internal/pipeline"
)

// --- モック定義 ---

// mockJobService はworkを同期実行するジョブサービスのモック。
// バックグラウンド実行を挟まないため、ハンドラーのテストが決定的になる。
type mockJobService struct {
	mu         sync.Mutex
	created    []string // 作成されたジョブの種別
	nextID     string
	getFunc    func(id string) (*model.Job, bool)
	latestFunc func(ownerID string) *model.Job

	// 同期実行されたworkの結果
	workResult any
	workErr    error
	progress   []string
}

func newMockJobService() *mockJobService {
	return &mockJobService{nextID: "job_test_1"}
}

func (m *mockJobService) Create(jobType, ownerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, jobType)
	return m.nextID
}

func (m *mockJobService) Get(id string) (*model.Job, bool) {
	return m.getFunc(id)
}

func (m *mockJobService) Latest(ownerID string) *model.Job {
	return m.latestFunc(ownerID)
}

func (m *mockJobService) RunInBackground(id string, work job.Work) {
	result, err := work(func(p string) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.progress = append(m.progress, p)
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workResult = result
	m.workErr = err
}

var _ JobService = (*mockJobService)(nil)

// mockCollector はGitHub収集クライアントのモック。
type mockCollector struct {
	collectFunc func(ctx context.Context, token, start, end string) (*github.RawActivity, error)
}

func (m *mockCollector) Collect(ctx context.Context, token, start, end string) (*github.RawActivity, error) {
	return m.collectFunc(ctx, token, start, end)
}

var _ CollectorInterface = (*mockCollector)(nil)

// mockRunner は解析パイプラインのモック。
type mockRunner struct {
	runFunc func(ctx context.Context, evidence *model.Evidence, progress func(string)) (*model.PipelineResult, error)
}

func (m *mockRunner) Run(ctx context.Context, evidence *model.Evidence, progress func(string)) (*model.PipelineResult, error) {
	return m.runFunc(ctx, evidence, progress)
}

var _ pipeline.Runner = (*mockRunner)(nil)

// mockSessionFinder はセッションストアの検索モック。
type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) Get(id string) *model.Session {
	return m.sessions[id]
}

var _ middleware.SessionFinder = (*mockSessionFinder)(nil)

// mockJobRecorder はジョブ開始メトリクスのモック。
type mockJobRecorder struct {
	mu      sync.Mutex
	started []string
}

func (m *mockJobRecorder) RecordJobStarted(jobType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, jobType)
}

var _ JobStartedRecorder = (*mockJobRecorder)(nil)

// mockAuthService は認証サービスのモック。
type mockAuthService struct {
	getLoginURLFunc    func(state string) string
	issueStateFunc     func() (string, string, error)
	consumeStateFunc   func(stateID string) string
	handleCallbackFunc func(ctx context.Context, code string) (string, error)
	logoutFunc         func(sessionID string)
	currentSessionFunc func(sessionID string) *model.Session
}

func (m *mockAuthService) GetLoginURL(state string) string { return m.getLoginURLFunc(state) }
func (m *mockAuthService) IssueState() (string, string, error) {
	return m.issueStateFunc()
}
func (m *mockAuthService) ConsumeState(stateID string) string { return m.consumeStateFunc(stateID) }
func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (string, error) {
	return m.handleCallbackFunc(ctx, code)
}
func (m *mockAuthService) Logout(sessionID string) { m.logoutFunc(sessionID) }
func (m *mockAuthService) CurrentSession(sessionID string) *model.Session {
	return m.currentSessionFunc(sessionID)
}

var _ AuthServiceInterface = (*mockAuthService)(nil)
