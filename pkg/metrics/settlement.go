package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "adspace"

// Settlement counts booking and money movements. A nil *Settlement is a no-op.
type Settlement struct {
	itemsAdded    prometheus.Counter
	itemsRemoved  prometheus.Counter
	itemDecisions *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	penalties     *prometheus.CounterVec
	payments      *prometheus.CounterVec
	payouts       *prometheus.CounterVec
}

// NewSettlement registers the settlement metrics on the provided registerer.
func NewSettlement(reg prometheus.Registerer) *Settlement {
	if reg == nil {
		return &Settlement{}
	}
	s := &Settlement{
		itemsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_items_added_total",
			Help:      "Campaign items booked.",
		}),
		itemsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_items_removed_total",
			Help:      "Campaign items removed.",
		}),
		itemDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_item_decisions_total",
			Help:      "Provider decisions on campaign items.",
		}, []string{"decision"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts refused by a business rule.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_transitions_total",
			Help:      "Campaign status transitions.",
		}, []string{"from", "to"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_cancellations_total",
			Help:      "Campaign cancellations by whether a penalty applied.",
		}, []string{"penalty"}),
		penalties: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellation_penalty_amount_total",
			Help:      "Sum of cancellation penalties.",
		}, []string{"currency"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_total",
			Help:      "Sum of recorded payments.",
		}, []string{"currency"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_generated_total",
			Help:      "Payout rows generated.",
		}, []string{"currency"}),
	}
	reg.MustRegister(
		s.itemsAdded,
		s.itemsRemoved,
		s.itemDecisions,
		s.conflicts,
		s.transitions,
		s.cancellations,
		s.penalties,
		s.payments,
		s.payouts,
	)
	return s
}

func (s *Settlement) ItemAdded() {
	if s == nil || s.itemsAdded == nil {
		return
	}
	s.itemsAdded.Inc()
}

func (s *Settlement) ItemRemoved() {
	if s == nil || s.itemsRemoved == nil {
		return
	}
	s.itemsRemoved.Inc()
}

func (s *Settlement) ItemDecided(decision string) {
	if s == nil || s.itemDecisions == nil {
		return
	}
	s.itemDecisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

// Conflict records a refused booking, e.g. reason "unavailable" or "duplicate".
func (s *Settlement) Conflict(reason string) {
	if s == nil || s.conflicts == nil {
		return
	}
	s.conflicts.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (s *Settlement) Transition(from, to string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (s *Settlement) Cancelled(currency string, penalty decimal.Decimal) {
	if s == nil || s.cancellations == nil {
		return
	}
	label := "none"
	if penalty.IsPositive() {
		label = "applied"
		s.penalties.WithLabelValues(normalizeLabel(currency)).Add(penalty.InexactFloat64())
	}
	s.cancellations.WithLabelValues(label).Inc()
}

func (s *Settlement) PaymentRecorded(currency string, amount decimal.Decimal) {
	if s == nil || s.payments == nil {
		return
	}
	s.payments.WithLabelValues(normalizeLabel(currency)).Add(amount.InexactFloat64())
}

func (s *Settlement) PayoutsGenerated(currency string, count int) {
	if s == nil || s.payouts == nil {
		return
	}
	s.payouts.WithLabelValues(normalizeLabel(currency)).Add(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
