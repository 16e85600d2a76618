// Package metrics holds the prometheus collectors exported on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transfer outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeError        = "error"
)

// Metrics groups the service collectors
type Metrics struct {
	TransfersTotal     *prometheus.CounterVec
	UnitsTransferred   prometheus.Counter
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	NotificationsTotal *prometheus.CounterVec
	InventoryProducts  *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransfersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_reorder_transfers_total",
				Help: "Total number of batch to product transfers by outcome",
			},
			[]string{"outcome"},
		),
		UnitsTransferred: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockroom_reorder_units_total",
				Help: "Total number of units moved from batches into products",
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockroom_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_notifications_total",
				Help: "Total number of notifications recorded by type",
			},
			[]string{"type"},
		),
		InventoryProducts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockroom_inventory_products",
				Help: "Number of products per stock status at the last summary",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.TransfersTotal,
		m.UnitsTransferred,
		m.RequestsTotal,
		m.RequestDuration,
		m.NotificationsTotal,
		m.InventoryProducts,
	)
	return m
}

// ObserveTransfer records one transfer attempt
func (m *Metrics) ObserveTransfer(outcome string, units int) {
	m.TransfersTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess && units > 0 {
		m.UnitsTransferred.Add(float64(units))
	}
}

// ObserveNotification counts a recorded notification
func (m *Metrics) ObserveNotification(notificationType string) {
	m.NotificationsTotal.WithLabelValues(notificationType).Inc()
}

// SetInventory publishes the latest summary counts
func (m *Metrics) SetInventory(inStock, lowStock, outOfStock int) {
	m.InventoryProducts.WithLabelValues("in_stock").Set(float64(inStock))
	m.InventoryProducts.WithLabelValues("low_stock").Set(float64(lowStock))
	m.InventoryProducts.WithLabelValues("out_of_stock").Set(float64(outOfStock))
}
