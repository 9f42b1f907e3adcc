package paginator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks menus currently listening for reactions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tagwarden_menu_sessions_active",
		Help: "The number of menu sessions currently listening for reactions",
	})

	// SessionsClosed counts finished sessions by close reason.
	SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagwarden_menu_sessions_closed_total",
		Help: "The total number of menu sessions closed",
	}, []string{"reason"})

	// Navigations counts page transitions by action.
	Navigations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagwarden_menu_navigations_total",
		Help: "The total number of menu page transitions",
	}, []string{"action"})

	// DroppedEvents counts reaction events dropped on a full session queue.
	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tagwarden_menu_events_dropped_total",
		Help: "Reaction events dropped because a session queue was full",
	})
)
