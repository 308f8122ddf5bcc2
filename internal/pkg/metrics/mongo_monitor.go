package metrics

import (
	"context"

	"go.mongodb.org/mongo-driver/event"
)

// Pool connection states reported by DBPoolConnections.
const (
	poolStateOpen  = "open"
	poolStateInUse = "in_use"
)

// NewPoolMonitor returns a driver pool monitor that keeps DBPoolConnections
// in sync with connection lifecycle events.
func NewPoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: RecordPoolEvent,
	}
}

// RecordPoolEvent updates pool gauges for a single driver event.
func RecordPoolEvent(e *event.PoolEvent) {
	switch e.Type {
	case event.ConnectionCreated:
		DBPoolConnections.WithLabelValues(poolStateOpen).Inc()
	case event.ConnectionClosed:
		DBPoolConnections.WithLabelValues(poolStateOpen).Dec()
	case event.GetSucceeded:
		DBPoolConnections.WithLabelValues(poolStateInUse).Inc()
	case event.ConnectionReturned:
		DBPoolConnections.WithLabelValues(poolStateInUse).Dec()
	}
}

// NewCommandMonitor returns a driver command monitor feeding DBCommandDuration.
func NewCommandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			DBCommandDuration.WithLabelValues(e.CommandName, "success").Observe(e.Duration.Seconds())
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			DBCommandDuration.WithLabelValues(e.CommandName, "failure").Observe(e.Duration.Seconds())
		},
	}
}
