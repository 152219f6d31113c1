// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/reviewgen/internal/model"
)

// Recorder はメトリクス記録のインターフェース。
// ハンドラーやジョブストアのフックから利用する。
type Recorder interface {
	RecordJobStarted(jobType string)
	RecordJobFinished(jobType string, status model.JobStatus, elapsed time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registry    *prometheus.Registry
	jobsStarted *prometheus.CounterVec
	jobsDone    *prometheus.CounterVec
	jobDuration prometheus.Histogram
	httpStatus  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、専用レジストリにメトリクスを登録する。
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewgen_jobs_started_total",
			Help: "開始されたバックグラウンドジョブの合計数",
		}, []string{"type"}),
		jobsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewgen_jobs_finished_total",
			Help: "終端状態に達したジョブの合計数",
		}, []string{"type", "status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reviewgen_job_duration_seconds",
			Help:    "ジョブ実行時間（秒）",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewgen_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	c.registry.MustRegister(c.jobsStarted, c.jobsDone, c.jobDuration, c.httpStatus)
	return c
}

// RecordJobStarted はジョブ開始を記録する。
func (c *Collector) RecordJobStarted(jobType string) {
	c.jobsStarted.WithLabelValues(jobType).Inc()
}

// RecordJobFinished はジョブの終端遷移を記録する。
func (c *Collector) RecordJobFinished(jobType string, status model.JobStatus, elapsed time.Duration) {
	c.jobsDone.WithLabelValues(jobType, string(status)).Inc()
	c.jobDuration.Observe(elapsed.Seconds())
}

// RecordHTTPStatus はHTTPレスポンスのステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler は/metricsエンドポイント用のHTTPハンドラーを返す。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
