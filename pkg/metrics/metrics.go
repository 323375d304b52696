// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package metrics provides Prometheus metrics for the ECP client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ECPRequestsTotal counts ECP HTTP requests by method and resulting status
	ECPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecp_requests_total",
		Help: "Total number of ECP HTTP requests by method and status code",
	}, []string{"method", "status"})

	// ECPRequestDuration tracks how long ECP HTTP requests take
	ECPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecp_request_duration_seconds",
		Help:    "Duration of ECP HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// WakeOnLANPacketsTotal counts magic packets emitted
	WakeOnLANPacketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecp_wol_packets_total",
		Help: "Total number of Wake-on-LAN magic packets sent",
	})

	// WakeOnLANErrors counts magic packets that could not be emitted
	WakeOnLANErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecp_wol_errors_total",
		Help: "Total number of failed Wake-on-LAN sends",
	})

	// SSDPResponsesTotal counts SSDP datagrams received during discovery
	SSDPResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecp_ssdp_responses_total",
		Help: "Total number of SSDP responses received",
	})

	// DevicesDiscovered tracks the number of devices found by the last discovery
	DevicesDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ecp_devices_discovered",
		Help: "Number of ECP devices found by the most recent discovery",
	})

	// DiscoveryDuration tracks how long device discovery takes
	DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecp_discovery_duration_seconds",
		Help:    "Duration of device discovery in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// DevicesMonitored tracks the number of devices whose power state is polled
	DevicesMonitored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ecp_devices_monitored",
		Help: "Number of devices currently polled for power state",
	})

	// PowerStateReadsTotal counts power-state polls
	PowerStateReadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecp_power_state_reads_total",
		Help: "Total number of power state reads",
	})

	// DevicePowerState exposes the last observed power state per device
	// (0=unknown, 1=off, 2=display off, 3=on)
	DevicePowerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecp_device_power_state",
		Help: "Last observed power state (0=unknown, 1=off, 2=display off, 3=on)",
	}, []string{"device_ip", "device_name"})

	// PowerTransitionsTotal counts observed power state changes
	PowerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecp_power_transitions_total",
		Help: "Total number of observed power state transitions",
	}, []string{"device_ip", "to"})
)
