// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check-in result labels.
const (
	ResultOK             = "ok"
	ResultInvalidQRCode  = "invalid_qr_code"
	ResultNotActive      = "session_not_active"
	ResultNotEnrolled    = "not_enrolled"
	ResultAlreadyChecked = "already_checked_in"
	ResultForbidden      = "forbidden"
	ResultError          = "error"
)

var (
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "checkins_total",
		Help:      "Check-in attempts by result.",
	}, []string{"result"})

	CheckInDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "checkin_duration_seconds",
		Help:      "Time spent validating and recording a check-in.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "sessions_created_total",
		Help:      "Sessions created.",
	})

	ManualMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "manual_marks_total",
		Help:      "Records written by staff override, by status.",
	}, []string{"status"})

	Removals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "removals_total",
		Help:      "Attendance records removed by staff.",
	})

	EventsPublishFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "events_publish_failed_total",
		Help:      "Attendance and session events that could not be queued.",
	})

	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "tally_events_applied_total",
		Help:      "Events applied to the live tally, by type.",
	}, []string{"type"})
)
