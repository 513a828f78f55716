// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 監査イベントの処理結果ラベル
const (
	AuditWritten = "written"
	AuditDropped = "dropped"
	AuditFailed  = "failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、監査ワーカー、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordTestCaseMutation(action string)
	RecordImportItem(outcome string)
	RecordImportLatency(duration time.Duration)
	RecordAuditEvent(sink, result string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	testCaseMutations *prometheus.CounterVec
	importItems       *prometheus.CounterVec
	importLatency     prometheus.Histogram
	auditEvents       *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		testCaseMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "testboard_testcase_mutations_total",
			Help: "操作種別ごとのテストケース変更数",
		}, []string{"action"}),
		importItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "testboard_bulk_import_items_total",
			Help: "一括インポートの結果別件数",
		}, []string{"outcome"}),
		importLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "testboard_bulk_import_duration_seconds",
			Help:    "一括インポート1回あたりの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "testboard_audit_events_total",
			Help: "監査イベントの出力先・結果別件数",
		}, []string{"sink", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "testboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.testCaseMutations,
		c.importItems,
		c.importLatency,
		c.auditEvents,
		c.httpStatus,
	)

	return c
}

// RecordTestCaseMutation はテストケースの作成・更新・削除を記録する。
func (c *Collector) RecordTestCaseMutation(action string) {
	c.testCaseMutations.WithLabelValues(action).Inc()
}

// RecordImportItem は一括インポート1件分の結果を記録する。
func (c *Collector) RecordImportItem(outcome string) {
	c.importItems.WithLabelValues(outcome).Inc()
}

// RecordImportLatency は一括インポート全体の処理時間を記録する。
func (c *Collector) RecordImportLatency(duration time.Duration) {
	c.importLatency.Observe(duration.Seconds())
}

// RecordAuditEvent は監査イベントの処理結果を記録する。
// キュー満杯による破棄はsinkに"queue"を指定する。
func (c *Collector) RecordAuditEvent(sink, result string) {
	c.auditEvents.WithLabelValues(sink, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。メトリクスを使わない構成やテストで使う。
type Nop struct{}

func (Nop) RecordTestCaseMutation(string)     {}
func (Nop) RecordImportItem(string)           {}
func (Nop) RecordImportLatency(time.Duration) {}
func (Nop) RecordAuditEvent(string, string)   {}
func (Nop) RecordHTTPStatus(int)              {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
