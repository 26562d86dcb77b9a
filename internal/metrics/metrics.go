// Package metrics exposes Prometheus counters for the notification pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notification"

type Metrics struct {
	registry *prometheus.Registry

	eventsIngested   *prometheus.CounterVec
	consumerMessages *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	alertsTriggered  *prometheus.CounterVec
	marketRefreshes  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Events accepted at the ingestion edge by type and result.",
		}, []string{"event_type", "result"}),
		consumerMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_messages_total",
			Help:      "Broker messages handled by consumer role and outcome.",
		}, []string{"consumer", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_deliveries_total",
			Help:      "Channel delivery attempts by channel and result.",
		}, []string{"channel", "result"}),
		alertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_triggered_total",
			Help:      "Alerts fired by kind.",
		}, []string{"kind"}),
		marketRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_refresh_total",
			Help:      "Market data fetches by source and result.",
		}, []string{"source", "result"}),
	}
	m.registry.MustRegister(
		m.eventsIngested,
		m.consumerMessages,
		m.deliveries,
		m.alertsTriggered,
		m.marketRefreshes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EventIngested(eventType, result string) {
	if m == nil {
		return
	}
	m.eventsIngested.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) ConsumerMessage(consumer, outcome string) {
	if m == nil {
		return
	}
	m.consumerMessages.WithLabelValues(consumer, outcome).Inc()
}

func (m *Metrics) Delivery(channel string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.deliveries.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) AlertTriggered(kind string) {
	if m == nil {
		return
	}
	m.alertsTriggered.WithLabelValues(kind).Inc()
}

func (m *Metrics) MarketRefresh(source, result string) {
	if m == nil {
		return
	}
	m.marketRefreshes.WithLabelValues(source, result).Inc()
}
