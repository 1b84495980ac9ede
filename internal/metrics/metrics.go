// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// リゾルバ、キャッシュ付きリポジトリ、タッチフラッシャーから利用する。
type MetricsCollector interface {
	RecordAuthSuccess(scheme string)
	RecordAuthFailure(scheme string, code string)
	RecordCacheHit(store string)
	RecordCacheMiss(store string)
	RecordProviderVerify(provider string, outcome string)
	RecordTouchFlush(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authSuccess    *prometheus.CounterVec
	authFailure    *prometheus.CounterVec
	cacheHit       *prometheus.CounterVec
	cacheMiss      *prometheus.CounterVec
	providerVerify *prometheus.CounterVec
	touchFlushed   prometheus.Counter
	touchFlushes   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekey_auth_success_total",
			Help: "スキーム別の認証成功数",
		}, []string{"scheme"}),
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekey_auth_failure_total",
			Help: "スキームとエラーコード別の認証失敗数",
		}, []string{"scheme", "code"}),
		cacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekey_cache_hit_total",
			Help: "ストア別のキャッシュヒット数",
		}, []string{"store"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekey_cache_miss_total",
			Help: "ストア別のキャッシュミス数",
		}, []string{"store"}),
		providerVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekey_provider_verify_total",
			Help: "外部IdPトークン検証の結果数",
		}, []string{"provider", "outcome"}),
		touchFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekey_touch_flushed_total",
			Help: "フラッシュされたセッションタッチの合計数",
		}),
		touchFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekey_touch_flush_cycles_total",
			Help: "タッチフラッシュサイクルの実行数",
		}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFailure,
		c.cacheHit,
		c.cacheMiss,
		c.providerVerify,
		c.touchFlushed,
		c.touchFlushes,
	)

	return c
}

// RecordAuthSuccess は認証成功を記録する。
func (c *Collector) RecordAuthSuccess(scheme string) {
	c.authSuccess.WithLabelValues(scheme).Inc()
}

// RecordAuthFailure は認証失敗を記録する。
func (c *Collector) RecordAuthFailure(scheme string, code string) {
	c.authFailure.WithLabelValues(scheme, code).Inc()
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(store string) {
	c.cacheHit.WithLabelValues(store).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(store string) {
	c.cacheMiss.WithLabelValues(store).Inc()
}

// RecordProviderVerify は外部IdPトークン検証の結果を記録する。
func (c *Collector) RecordProviderVerify(provider string, outcome string) {
	c.providerVerify.WithLabelValues(provider, outcome).Inc()
}

// RecordTouchFlush はタッチフラッシュサイクル1回分の結果を記録する。
func (c *Collector) RecordTouchFlush(count int) {
	c.touchFlushes.Inc()
	c.touchFlushed.Add(float64(count))
}

// Noop は何も記録しないMetricsCollector実装。テストや未設定時に使用する。
type Noop struct{}

func (Noop) RecordAuthSuccess(scheme string)                    {}
func (Noop) RecordAuthFailure(scheme string, code string)       {}
func (Noop) RecordCacheHit(store string)                        {}
func (Noop) RecordCacheMiss(store string)                       {}
func (Noop) RecordProviderVerify(provider string, outcome string) {}
func (Noop) RecordTouchFlush(count int)                         {}

// compile-time interface checks
var _ MetricsCollector = (*Collector)(nil)
var _ MetricsCollector = Noop{}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
