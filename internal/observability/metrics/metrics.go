package metrics

import "github.com/prometheus/client_golang/prometheus"

// WatchMetrics exposes counters for the appointment status watcher.
type WatchMetrics struct {
	ticksTotal       *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	publishedTotal   *prometheus.CounterVec
}

func NewWatchMetrics(reg prometheus.Registerer) *WatchMetrics {
	m := &WatchMetrics{
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "watch",
			Name:      "ticks_total",
			Help:      "Poll ticks executed per tenant",
		}, []string{"org", "status"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "watch",
			Name:      "ready_transitions_total",
			Help:      "Appointments observed entering the ready status",
		}, []string{"org"}),
		publishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicops",
			Subsystem: "watch",
			Name:      "notifications_published_total",
			Help:      "Notification records persisted and broadcast",
		}, []string{"org", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ticksTotal, m.transitionsTotal, m.publishedTotal)
	return m
}

func (m *WatchMetrics) ObserveTick(org, status string) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(org, status).Inc()
}

func (m *WatchMetrics) ObserveTransition(org string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(org).Inc()
}

func (m *WatchMetrics) ObservePublished(org, status string) {
	if m == nil {
		return
	}
	m.publishedTotal.WithLabelValues(org, status).Inc()
}

// RealtimeMetrics tracks WebSocket observer connections.
type RealtimeMetrics struct {
	connected *prometheus.GaugeVec
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	m := &RealtimeMetrics{
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clinicops",
			Subsystem: "realtime",
			Name:      "connected_clients",
			Help:      "Currently connected WebSocket observers",
		}, []string{"room"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.connected)
	return m
}

func (m *RealtimeMetrics) ClientConnected(room string) {
	if m == nil {
		return
	}
	m.connected.WithLabelValues(room).Inc()
}

func (m *RealtimeMetrics) ClientDisconnected(room string) {
	if m == nil {
		return
	}
	m.connected.WithLabelValues(room).Dec()
}
