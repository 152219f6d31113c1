// Package job はバックグラウンドジョブの生成・追跡・実行を提供する。
// ジョブはメモリ上にのみ存在し、プロセス再起動で消える（単一インスタンス前提）。
// クライアントはPOSTでジョブを開始し、GET /api/jobs/{id} で状態をポーリングする。
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/reviewgen/internal/model"
)

// Work はバックグラウンドで実行される処理。
// progressを任意の回数呼び出して進捗フィールドを更新できる。
// 返り値がジョブのResult、エラーがジョブのErrorになる。
type Work func(progress func(string)) (any, error)

// Observer はジョブが終端状態へ遷移したときに呼ばれるフック。
// メトリクス記録用で、ストアのロック外から呼び出される。
type Observer func(jobType string, status model.JobStatus, elapsed time.Duration)

// Store はジョブレコードをメモリ上で管理する。
// 全操作はミューテックスで直列化され、進捗コールバックが終端遷移と
// 並行しても状態は破壊されない。
type Store struct {
	mu       sync.Mutex
	jobs     map[string]*model.Job
	observer Observer
	now      func() time.Time // テスト用に差し替え可能
}

// NewStore はStoreを生成する。
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*model.Job),
		now:  time.Now,
	}
}

// SetObserver は終端遷移フックを設定する。起動時のワイヤリングでのみ呼ぶこと。
func (s *Store) SetObserver(o Observer) {
	s.observer = o
}

// Create は新しいジョブをpending状態で作成し、そのIDを返す。
// IDはゼロ埋めしたミリ秒タイムスタンプを含むため、辞書順が作成順と一致する。
func (s *Store) Create(jobType, ownerID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := newJobID(now)
	s.jobs[id] = &model.Job{
		ID:        id,
		Type:      jobType,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		CreatedBy: ownerID,
	}
	return id
}

// Get はジョブを検索する。返り値はコピー。見つからない場合は第2返り値がfalse。
func (s *Store) Get(id string) (*model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return copyJob(j), true
}

// Latest は指定オーナーのジョブのうち、作成時刻が最も新しいものを返す。
// 同時刻の場合はIDの辞書順で大きい方を選ぶ（結果は決定的）。
// オーナーのジョブが1件もない場合はnilを返す。
func (s *Store) Latest(ownerID string) *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *model.Job
	for _, j := range s.jobs {
		if j.CreatedBy != ownerID {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) ||
			(j.CreatedAt.Equal(latest.CreatedAt) && j.ID > latest.ID) {
			latest = j
		}
	}
	if latest == nil {
		return nil
	}
	return copyJob(latest)
}

// Update は既存レコードへ部分更新をマージする。未知のIDにはno-op。
// ストア操作はベストエフォートな記録であり、エラーを返さない。
type Update struct {
	Status        model.JobStatus // 空文字は変更なし
	Progress      *string         // 非nilなら進捗を更新
	ClearProgress bool            // trueなら進捗をnilへ戻す
	Result        any
	HasResult     bool // trueならResultを（nilでも）上書き
	Error         string
	HasError      bool // trueならErrorを（空でも）上書き
}

// ApplyUpdate は更新をマージする。未知のIDにはno-op。
func (s *Store) ApplyUpdate(id string, u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(id, u)
}

func (s *Store) applyLocked(id string, u Update) {
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	if u.Status != "" {
		j.Status = u.Status
	}
	if u.ClearProgress {
		j.Progress = nil
	} else if u.Progress != nil {
		j.Progress = u.Progress
	}
	if u.HasResult {
		j.Result = u.Result
	}
	if u.HasError {
		j.Error = u.Error
	}
}

// RunInBackground はジョブをrunningへ遷移させ、workをgoroutineで1回だけ実行する。
// 正常終了でdone（Result設定・Errorクリア・進捗クリア）、
// エラーまたはpanicでfailed（Error設定・進捗クリア）へ遷移する。
// 終端遷移はジョブごとに高々1回しか起きない。
func (s *Store) RunInBackground(id string, work Work) {
	start := s.now()
	s.ApplyUpdate(id, Update{Status: model.JobStatusRunning})

	progress := func(p string) {
		s.reportProgress(id, p)
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.finish(id, start, nil, fmt.Errorf("panic: %v", rec))
			}
		}()
		result, err := work(progress)
		s.finish(id, start, result, err)
	}()
}

// reportProgress は進捗フィールドを更新する。
// 終端状態に達した後の進捗報告は無視する（終端遷移が常に最後の観測になる）。
func (s *Store) reportProgress(id, p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		return
	}
	j.Progress = &p
}

// finish はジョブを終端状態へ遷移させる。既に終端ならno-op。
func (s *Store) finish(id string, start time.Time, result any, err error) {
	s.mu.Lock()

	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		s.mu.Unlock()
		return
	}

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "job failed"
		}
		s.applyLocked(id, Update{
			Status:        model.JobStatusFailed,
			ClearProgress: true,
			HasError:      true,
			Error:         msg,
		})
	} else {
		s.applyLocked(id, Update{
			Status:        model.JobStatusDone,
			ClearProgress: true,
			HasResult:     true,
			Result:        result,
			HasError:      true,
			Error:         "",
		})
	}

	jobType := j.Type
	status := j.Status
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(jobType, status, s.now().Sub(start))
	}
}

// newJobID はジョブIDを生成する。
// 形式: job_<13桁ゼロ埋めミリ秒>_<ランダムサフィックス>
func newJobID(t time.Time) string {
	return fmt.Sprintf("job_%013d_%s", t.UnixMilli(), uuid.New().String()[:8])
}

// copyJob はレコードの浅いコピーを返す。Progressポインタも複製する。
func copyJob(j *model.Job) *model.Job {
	copied := *j
	if j.Progress != nil {
		p := *j.Progress
		copied.Progress = &p
	}
	return &copied
}
