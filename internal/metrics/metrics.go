package metrics

import "github.com/prometheus/client_golang/prometheus"

// Booking outcomes reported by the scheduling service.
const (
	OutcomeBooked   = "booked"
	OutcomeConflict = "conflict"
	OutcomeBusy     = "busy"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// SchedulingMetrics exposes counters/histograms for booking flows.
type SchedulingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	bookingLatency     *prometheus.HistogramVec
	availabilityTotal  *prometheus.CounterVec
	availableSlotCount *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome and appointment type",
		}, []string{"outcome", "appointment_type"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "booking_latency_seconds",
			Help:      "Latency of booking attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "availability_queries_total",
			Help:      "Availability lookups by appointment type",
		}, []string{"appointment_type"}),
		availableSlotCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "available_slots",
			Help:      "Number of open slots returned per availability lookup",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 24},
		}, []string{"appointment_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.availabilityTotal, m.availableSlotCount)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome, appointmentType string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome, appointmentType).Inc()
	m.bookingLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveAvailability(appointmentType string, slots int) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(appointmentType).Inc()
	m.availableSlotCount.WithLabelValues(appointmentType).Observe(float64(slots))
}
