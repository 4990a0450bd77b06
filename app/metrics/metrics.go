// Package metrics 以 Prometheus 指标记录请求，并提供指标抓取处理器。
package metrics

import (
	"strconv"
	"time"

	"github.com/favbox/breeze/common/adaptor"
	"github.com/favbox/breeze/common/tracer"
	"github.com/favbox/breeze/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "breeze"

// Metrics 持有服务器的全部 Prometheus 指标。
//
// 它实现 tracer.Tracer，通过 route.Engine.AddTracer 接入请求分发。
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge

	reg prometheus.Registerer
}

var _ tracer.Tracer = (*Metrics)(nil)

// New 创建指标并注册到 reg。
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of dispatched requests",
			},
			[]string{"method", "code"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time spent inside the request handler",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		InFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently inside a handler",
			},
		),
		reg: reg,
	}
}

// Counter 是可以报告当前数量的对象，例如 session.Store。
type Counter interface {
	Len() int
}

// WatchSessions 注册活跃会话数量指标，每次抓取时读取 c.Len()。
func (m *Metrics) WatchSessions(c Counter) {
	promauto.With(m.reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live sessions",
		},
		func() float64 { return float64(c.Len()) },
	)
}

func (m *Metrics) Start(req *protocol.Request) {
	m.InFlight.Inc()
}

func (m *Metrics) Finish(req *protocol.Request, resp *protocol.Response, cost time.Duration) {
	m.InFlight.Dec()
	code := "0"
	if resp != nil {
		code = strconv.Itoa(resp.StatusCode())
	}
	m.RequestsTotal.WithLabelValues(req.Method(), code).Inc()
	m.RequestDuration.WithLabelValues(req.Method()).Observe(cost.Seconds())
}

// Handler 返回以文本格式输出 g 中指标的处理器。
func Handler(g prometheus.Gatherer) protocol.HandlerFunc {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
