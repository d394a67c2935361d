package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 结果标签
const (
	ResultSuccess = "success"
	ResultFailure = "failure"

	DestinationPatient = "patient"
	DestinationGlobal  = "global"

	TransitionCreated   = "created"
	TransitionCompleted = "completed"
	TransitionDeleted   = "deleted"
	TransitionNoop      = "noop"
)

// Metrics SOS 调度指标
// 每个实例使用独立的 Registry；nil *Metrics 的所有方法都是空操作
type Metrics struct {
	registry *prometheus.Registry

	sosTriggersTotal         *prometheus.CounterVec
	sosLocationTotal         *prometheus.CounterVec
	sosAlertWritesTotal      *prometheus.CounterVec
	reminderTransitionsTotal *prometheus.CounterVec
}

// NewMetrics 创建指标管理器
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		sosTriggersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_triggers_total",
				Help: "Total number of SOS triggers by result",
			},
			[]string{"result"},
		),

		sosLocationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_location_total",
				Help: "Location acquisitions during SOS dispatch by outcome",
			},
			[]string{"outcome"},
		),

		sosAlertWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_alert_writes_total",
				Help: "SOS alert writes by destination and result",
			},
			[]string{"destination", "result"},
		),

		reminderTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reminder_transitions_total",
				Help: "Reminder lifecycle transitions",
			},
			[]string{"transition"},
		),
	}
}

// RecordTrigger 记录一次 SOS 触发
func (m *Metrics) RecordTrigger(result string) {
	if m == nil {
		return
	}
	m.sosTriggersTotal.WithLabelValues(result).Inc()
}

// RecordLocation 记录定位结果
func (m *Metrics) RecordLocation(outcome string) {
	if m == nil {
		return
	}
	m.sosLocationTotal.WithLabelValues(outcome).Inc()
}

// RecordAlertWrite 记录报警写入
func (m *Metrics) RecordAlertWrite(destination string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.sosAlertWritesTotal.WithLabelValues(destination, result).Inc()
}

// RecordReminderTransition 记录提醒状态迁移
func (m *Metrics) RecordReminderTransition(transition string) {
	if m == nil {
		return
	}
	m.reminderTransitionsTotal.WithLabelValues(transition).Inc()
}

// Registry 底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler Prometheus 抓取端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
