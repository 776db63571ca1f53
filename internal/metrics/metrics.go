// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// GraphQLハンドラーや認証サービスから利用する。
type MetricsCollector interface {
	RecordGraphQLRequest(operation string)
	RecordGraphQLError(operation string)
	RecordRequestDuration(duration time.Duration)
	RecordTokenVerifyFailure(kind string)
	RecordAuthDenied(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	graphqlRequests     *prometheus.CounterVec
	graphqlErrors       *prometheus.CounterVec
	requestDuration     prometheus.Histogram
	tokenVerifyFailures *prometheus.CounterVec
	authDenied          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		graphqlRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamlog_graphql_requests_total",
			Help: "GraphQL操作別のリクエスト合計数",
		}, []string{"operation"}),
		graphqlErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamlog_graphql_errors_total",
			Help: "GraphQL操作別のエラー合計数",
		}, []string{"operation"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dreamlog_request_duration_seconds",
			Help:    "GraphQLリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tokenVerifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamlog_token_verify_failures_total",
			Help: "トークン検証失敗の種別ごとの合計数",
		}, []string{"kind"}),
		authDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamlog_auth_denied_total",
			Help: "認可拒否の理由別合計数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.graphqlRequests,
		c.graphqlErrors,
		c.requestDuration,
		c.tokenVerifyFailures,
		c.authDenied,
	)

	return c
}

// RecordGraphQLRequest はGraphQL操作の実行を記録する。
func (c *Collector) RecordGraphQLRequest(operation string) {
	c.graphqlRequests.WithLabelValues(operation).Inc()
}

// RecordGraphQLError はGraphQL操作のエラーを記録する。
func (c *Collector) RecordGraphQLError(operation string) {
	c.graphqlErrors.WithLabelValues(operation).Inc()
}

// RecordRequestDuration はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordTokenVerifyFailure はトークン検証失敗を種別付きで記録する。
func (c *Collector) RecordTokenVerifyFailure(kind string) {
	c.tokenVerifyFailures.WithLabelValues(kind).Inc()
}

// RecordAuthDenied は認可拒否を理由付きで記録する。
func (c *Collector) RecordAuthDenied(reason string) {
	c.authDenied.WithLabelValues(reason).Inc()
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
