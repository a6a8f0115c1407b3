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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordFeedRequest()
	RecordFeedLatency(duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordMatchMutation(op string)
	RecordPushSent(count int)
	RecordPushFailed(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	feedRequests  prometheus.Counter
	feedLatency   prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	matchMutation *prometheus.CounterVec
	pushSent      prometheus.Counter
	pushFailed    prometheus.Counter
	httpStatus    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		feedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "woogie_feed_requests_total",
			Help: "フィード取得リクエストの合計数",
		}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "woogie_feed_latency_seconds",
			Help:    "フィード組み立てのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "woogie_event_cache_hits_total",
			Help: "イベントキャッシュヒットの合計数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "woogie_event_cache_misses_total",
			Help: "イベントキャッシュミスの合計数",
		}),
		matchMutation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "woogie_match_mutations_total",
			Help: "マッチ操作の合計数（操作別）",
		}, []string{"op"}),
		pushSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "woogie_push_sent_total",
			Help: "送信に成功したプッシュ通知の合計数",
		}),
		pushFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "woogie_push_failed_total",
			Help: "送信に失敗したプッシュ通知の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "woogie_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.feedRequests,
		c.feedLatency,
		c.cacheHits,
		c.cacheMisses,
		c.matchMutation,
		c.pushSent,
		c.pushFailed,
		c.httpStatus,
	)

	return c
}

// RecordFeedRequest はフィード取得リクエストを記録する。
func (c *Collector) RecordFeedRequest() {
	c.feedRequests.Inc()
}

// RecordFeedLatency はフィード組み立てのレイテンシを記録する。
func (c *Collector) RecordFeedLatency(duration time.Duration) {
	c.feedLatency.Observe(duration.Seconds())
}

// RecordCacheHit はイベントキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss はイベントキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordMatchMutation はマッチ操作（create/accept/delete）を記録する。
func (c *Collector) RecordMatchMutation(op string) {
	c.matchMutation.WithLabelValues(op).Inc()
}

// RecordPushSent は送信に成功したプッシュ通知数を記録する。
func (c *Collector) RecordPushSent(count int) {
	c.pushSent.Add(float64(count))
}

// RecordPushFailed は送信に失敗したプッシュ通知数を記録する。
func (c *Collector) RecordPushFailed(count int) {
	c.pushFailed.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
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
