package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// OrderMetrics records order placement, transitions and stock reservations.
type OrderMetrics struct {
	placed       *prometheus.CounterVec
	placeLatency *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	reservations *prometheus.CounterVec
	lowStock     prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_orders_placed_total",
		Help: "Order placement attempts by outcome code.",
	}, []string{"result"})
	placeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canteen_order_place_duration_seconds",
		Help:    "Duration of the place order transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_order_transitions_total",
		Help: "Committed order status transitions.",
	}, []string{"from", "to"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_inventory_reservations_total",
		Help: "Inventory reservation attempts by outcome code.",
	}, []string{"result"})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canteen_inventory_low_stock_total",
		Help: "Reservations that left a menu item below its threshold.",
	})
	reg.MustRegister(placed, placeLatency, transitions, reservations, lowStock)
	return &OrderMetrics{
		placed:       placed,
		placeLatency: placeLatency,
		transitions:  transitions,
		reservations: reservations,
		lowStock:     lowStock,
	}
}

// ObservePlaced records one placement attempt and its latency.
func (m *OrderMetrics) ObservePlaced(result string, duration time.Duration) {
	if m == nil || m.placed == nil {
		return
	}
	result = normalizeLabel(result)
	m.placed.WithLabelValues(result).Inc()
	m.placeLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// IncTransition counts a committed status change.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncReservation counts one reservation attempt.
func (m *OrderMetrics) IncReservation(result string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncLowStock counts a low-stock crossing.
func (m *OrderMetrics) IncLowStock() {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
