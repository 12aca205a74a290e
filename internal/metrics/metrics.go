// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingOperations counts lifecycle operations by name and result
	// (changed, noop, conflict, invalid, error).
	BookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hall_booking_operations_total",
			Help: "Booking lifecycle operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// SlotConflicts counts refusals caused by another booking of the slot.
	SlotConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hall_booking_slot_conflicts_total",
			Help: "Slot conflicts detected at submission, verify or unblock time",
		},
		[]string{"stage"},
	)

	// Notifications tracks the notification pipeline from enqueue to delivery.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hall_booking_notifications_total",
			Help: "Notification events by stage (enqueue, publish, deliver) and status",
		},
		[]string{"stage", "status"},
	)

	// LiveSubscribers is the number of connected announcement websockets.
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hall_booking_live_subscribers",
			Help: "Currently connected announcement subscribers",
		},
	)

	// HTTPRequestDuration observes handler latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hall_booking_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
