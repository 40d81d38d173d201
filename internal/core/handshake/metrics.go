package handshake

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 握手 Prometheus 指标
//   - handshake_total{role,result}：按角色与结果计数，result 为 success 或错误分类
//   - handshake_duration_seconds{role}：单次握手耗时
//   - handshake_duplicate_total：被拒绝的重复入站握手

const resultSuccess = "success"

// Metrics 握手指标集合
type Metrics struct {
	total     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	duplicate prometheus.Counter
}

// NewMetrics 创建并注册握手指标
// reg 为 nil 时仅创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swarm",
				Subsystem: "handshake",
				Name:      "total",
				Help:      "Total number of handshake attempts by role and result.",
			},
			[]string{"role", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "swarm",
				Subsystem: "handshake",
				Name:      "duration_seconds",
				Help:      "Handshake duration in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"role"},
		),
		duplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "swarm",
			Subsystem: "handshake",
			Name:      "duplicate_total",
			Help:      "Inbound handshakes rejected because the peer was already handshaked.",
		}),
	}
}

// observe 记录一次握手结果
func (m *Metrics) observe(role Role, start time.Time, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = "unknown"
		if kind, ok := KindOf(err); ok {
			result = kind.String()
		}
	}
	m.total.WithLabelValues(string(role), result).Inc()
	m.duration.WithLabelValues(string(role)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeDuplicate() {
	if m == nil {
		return
	}
	m.duplicate.Inc()
}
