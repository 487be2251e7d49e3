package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics tracks fan-out deliveries per transport.
type NotificationMetrics struct {
	deliveries *prometheus.CounterVec
	pruned     prometheus.Counter
	connected  prometheus.Gauge
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_deliveries_total",
		Help:      "Notification deliveries by transport and result.",
	}, []string{"transport", "result"})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_subscriptions_pruned_total",
		Help:      "Push subscriptions removed after the provider reported them gone.",
	})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_connections",
		Help:      "Currently connected websocket principals.",
	})
	reg.MustRegister(deliveries, pruned, connected)
	return &NotificationMetrics{deliveries: deliveries, pruned: pruned, connected: connected}
}

func (n *NotificationMetrics) ObserveDelivery(transport string, err error) {
	if n == nil || n.deliveries == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	n.deliveries.WithLabelValues(normalizeLabel(transport), result).Inc()
}

func (n *NotificationMetrics) IncPruned() {
	if n == nil || n.pruned == nil {
		return
	}
	n.pruned.Inc()
}

func (n *NotificationMetrics) ConnectionsDelta(delta float64) {
	if n == nil || n.connected == nil {
		return
	}
	n.connected.Add(delta)
}
