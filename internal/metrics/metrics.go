// Package metrics provides Prometheus metrics for the signaling relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenRooms tracks rooms that currently have at least one member.
	OpenRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_open_rooms",
			Help: "Number of currently open rooms",
		},
	)

	// JoinedPeers tracks connections that currently hold a peer record.
	JoinedPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_joined_peers",
			Help: "Number of connections currently joined to a room",
		},
	)

	// OpenConnections tracks live websocket connections, joined or not.
	OpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_open_connections",
			Help: "Number of open signaling websocket connections",
		},
	)

	// InboundMessages counts decoded inbound messages per type.
	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_inbound_messages_total",
			Help: "Total number of inbound signaling messages by type",
		},
		[]string{"type"},
	)

	// DroppedInbound counts inbound frames discarded before or during routing.
	DroppedInbound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_dropped_inbound_total",
			Help: "Total number of inbound messages dropped",
		},
		[]string{"reason"},
	)

	// DroppedOutbound counts messages not enqueued because the receiver was
	// closed or its queue was full.
	DroppedOutbound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_dropped_outbound_total",
			Help: "Total number of outbound messages dropped",
		},
	)

	// ErrorReplies counts error messages sent back to clients.
	ErrorReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_error_replies_total",
			Help: "Total number of error replies sent to clients",
		},
		[]string{"message"},
	)

	// CredentialsIssued counts relay credentials minted by the issuer.
	CredentialsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_turn_credentials_issued_total",
			Help: "Total number of TURN credentials issued",
		},
	)

	// EventsDropped counts lifecycle events lost because the publisher queue was full.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_events_dropped_total",
			Help: "Total number of lifecycle events dropped before publishing",
		},
	)
)

// Drop records a discarded inbound message.
func Drop(reason string) {
	DroppedInbound.WithLabelValues(reason).Inc()
}
