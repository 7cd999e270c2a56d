// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "p2poold"
const metricsSubsystem = "connmgr"

// metrics houses the instruments updated by the connection handler.
type metrics struct {
	connected          prometheus.Gauge
	connecting         prometheus.Gauge
	protectedConnected prometheus.Gauge
	dials              *prometheus.CounterVec
	closes             *prometheus.CounterVec
	evictions          prometheus.Counter
	protectedIgnored   prometheus.Counter
	maintenanceCycles  prometheus.Counter
}

// newMetrics creates the connection manager instruments and registers them
// with the provided registerer when it is not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "peers_connected",
			Help:      "Number of live peer connections.",
		}),
		connecting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "peers_connecting",
			Help:      "Number of connection attempts in progress.",
		}),
		protectedConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "protected_peers_connected",
			Help:      "Number of live connections to protected peers.",
		}),
		dials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "dials_total",
			Help:      "Connection attempts by result.",
		}, []string{"result"}),
		closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "disconnects_total",
			Help:      "Ended connections by reason.",
		}, []string{"reason"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "evictions_total",
			Help:      "Connections dropped to stay within the maximum number of peers.",
		}),
		protectedIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "protected_disconnects_ignored_total",
			Help:      "Disconnect requests ignored because the peer is protected.",
		}),
		maintenanceCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "maintenance_cycles_total",
			Help:      "Completed maintenance cycles.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connected, m.connecting, m.protectedConnected,
			m.dials, m.closes, m.evictions, m.protectedIgnored,
			m.maintenanceCycles)
	}
	return m
}
