// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordToggle(kind, relation string, added bool)
	RecordContentCreated(kind string)
	RecordAuthAttempt(method string, success bool)
	RecordImageUpload(success bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	toggles        *prometheus.CounterVec
	contentCreated *prometheus.CounterVec
	authAttempts   *prometheus.CounterVec
	imageUploads   *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersmeet_toggles_total",
			Help: "いいね・ブックマーク・フォローの切り替え数",
		}, []string{"kind", "relation", "direction"}),
		contentCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersmeet_content_created_total",
			Help: "種類別の作成されたコンテンツ数",
		}, []string{"kind"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersmeet_auth_attempts_total",
			Help: "認証方式・結果別の認証試行数",
		}, []string{"method", "result"}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersmeet_image_uploads_total",
			Help: "結果別の画像アップロード数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersmeet_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "codersmeet_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.toggles,
		c.contentCreated,
		c.authAttempts,
		c.imageUploads,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordToggle は関係の切り替えを記録する。addedがfalseの場合は解除として数える。
func (c *Collector) RecordToggle(kind, relation string, added bool) {
	c.toggles.WithLabelValues(kind, relation, direction(added)).Inc()
}

// RecordContentCreated はコンテンツ作成を記録する。
func (c *Collector) RecordContentCreated(kind string) {
	c.contentCreated.WithLabelValues(kind).Inc()
}

// RecordAuthAttempt は認証試行を記録する。
func (c *Collector) RecordAuthAttempt(method string, success bool) {
	c.authAttempts.WithLabelValues(method, result(success)).Inc()
}

// RecordImageUpload は画像アップロードの結果を記録する。
func (c *Collector) RecordImageUpload(success bool) {
	c.imageUploads.WithLabelValues(result(success)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

func direction(added bool) string {
	if added {
		return "add"
	}
	return "remove"
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクス未設定時に使う。
type Nop struct{}

func (Nop) RecordToggle(string, string, bool) {}
func (Nop) RecordContentCreated(string) {}
func (Nop) RecordAuthAttempt(string, bool) {}
func (Nop) RecordImageUpload(bool) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
var _ MetricsCollector = Nop{}
