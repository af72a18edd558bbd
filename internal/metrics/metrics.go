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
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordRegistration()
	RecordRegistrationFailure(reason string)
	RecordCancellation()
	RecordCheckIn()
	RecordCheckInDuplicate()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations     prometheus.Counter
	registrationFails *prometheus.CounterVec
	cancellations     prometheus.Counter
	checkins          prometheus.Counter
	checkinDuplicates prometheus.Counter
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
	sessionsCleaned   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_registrations_total",
			Help: "参加登録成功の合計数（再登録を含む）",
		}),
		registrationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_registration_failures_total",
			Help: "参加登録失敗の理由別合計数",
		}, []string{"reason"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_cancellations_total",
			Help: "登録キャンセルの合計数",
		}),
		checkins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_checkins_total",
			Help: "チェックイン成功の合計数",
		}),
		checkinDuplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_checkin_duplicates_total",
			Help: "チェックイン済み登録への再実行の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventman_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventman_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.registrationFails,
		c.cancellations,
		c.checkins,
		c.checkinDuplicates,
		c.httpStatus,
		c.requestLatency,
		c.sessionsCleaned,
	)

	return c
}

// RecordRegistration は登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordRegistrationFailure は登録失敗を理由付きで記録する。
// reasonは"capacity_exceeded"または"already_registered"。
func (c *Collector) RecordRegistrationFailure(reason string) {
	c.registrationFails.WithLabelValues(reason).Inc()
}

// RecordCancellation はキャンセルを記録する。
func (c *Collector) RecordCancellation() {
	c.cancellations.Inc()
}

// RecordCheckIn はチェックイン成功を記録する。
func (c *Collector) RecordCheckIn() {
	c.checkins.Inc()
}

// RecordCheckInDuplicate はチェックイン済み登録への再実行を記録する。
func (c *Collector) RecordCheckInDuplicate() {
	c.checkinDuplicates.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
