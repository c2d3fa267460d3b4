package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects processor counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	commands       *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	trades         prometheus.Counter
	tradedQuantity prometheus.Counter
	iocExpired     prometheus.Counter
	resting        *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands applied, by kind",
		}, []string{"kind"}),

		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Commands rejected as no-ops, by reason",
		}, []string{"reason"}),

		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades executed",
		}),

		tradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Quantity executed, counted once per trade",
		}),

		iocExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ioc_expired_total",
			Help:      "IOC orders removed at the end of their cycle",
		}),

		resting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Orders resting in the book, by side",
		}, []string{"side"}),
	}

	m.registry.MustRegister(
		m.commands,
		m.rejections,
		m.trades,
		m.tradedQuantity,
		m.iocExpired,
		m.resting,
	)
	return m
}

func (m *Metrics) Command(kind string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) Trade(qty int64) {
	if m == nil {
		return
	}
	m.trades.Inc()
	m.tradedQuantity.Add(float64(qty))
}

func (m *Metrics) IOCExpired() {
	if m == nil {
		return
	}
	m.iocExpired.Inc()
}

func (m *Metrics) Resting(buys, sells int) {
	if m == nil {
		return
	}
	m.resting.WithLabelValues("buy").Set(float64(buys))
	m.resting.WithLabelValues("sell").Set(float64(sells))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
