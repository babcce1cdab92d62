package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bot's Prometheus metrics.
type Metrics struct {
	// Messaging metrics
	UpdatesTotal       *prometheus.CounterVec
	UpdateErrorsTotal  prometheus.Counter
	MessagesSentTotal  prometheus.Counter
	MessageSendErrors  prometheus.Counter

	// Flow metrics
	ReadingsSubmitted prometheus.Counter
	ReceiptsUploaded  prometheus.Counter

	// Reminder metrics
	RemindersSentTotal   *prometheus.CounterVec
	ReminderErrorsTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics on the given
// registerer (the default registerer when nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meterbot_updates_total",
				Help: "Inbound updates handled, by kind (command, text, photo)",
			},
			[]string{"kind"},
		),
		UpdateErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meterbot_update_errors_total",
				Help: "Updates that failed with an upstream error",
			},
		),
		MessagesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meterbot_messages_sent_total",
				Help: "Outbound messages delivered",
			},
		),
		MessageSendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meterbot_message_send_errors_total",
				Help: "Outbound messages that failed to deliver",
			},
		),
		ReadingsSubmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meterbot_readings_submitted_total",
				Help: "Meter readings persisted",
			},
		),
		ReceiptsUploaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "meterbot_receipts_uploaded_total",
				Help: "Receipt photos uploaded to the object store",
			},
		),
		RemindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meterbot_reminders_sent_total",
				Help: "Reminder messages delivered, by kind (readings, payment)",
			},
			[]string{"kind"},
		),
		ReminderErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meterbot_reminder_errors_total",
				Help: "Reminder deliveries that failed, by kind (readings, payment)",
			},
			[]string{"kind"},
		),
	}

	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	registry.MustRegister(
		m.UpdatesTotal,
		m.UpdateErrorsTotal,
		m.MessagesSentTotal,
		m.MessageSendErrors,
		m.ReadingsSubmitted,
		m.ReceiptsUploaded,
		m.RemindersSentTotal,
		m.ReminderErrorsTotal,
	)

	return m
}
