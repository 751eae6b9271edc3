package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/davidleathers/outbound-pacing-backend/internal/api/websocket"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/scheduler"
)

// registerRuntimeMetrics exposes process-level pacer gauges on reg. Domain
// counters and histograms are recorded through OpenTelemetry instead.
func registerRuntimeMetrics(reg prometheus.Registerer, version string, sup *scheduler.Supervisor, hub *websocket.EventHub) {
	factory := promauto.With(reg)

	factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   "pacer",
		Name:        "build_info",
		Help:        "Build information of the running pacer",
		ConstLabels: prometheus.Labels{"version": version},
	}).Set(1)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pacer",
		Subsystem: "scheduler",
		Name:      "campaigns_running",
		Help:      "Campaigns with running pacing and compliance tasks",
	}, func() float64 {
		return float64(len(sup.Campaigns()))
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pacer",
		Subsystem: "websocket",
		Name:      "clients_connected",
		Help:      "Connected live event subscribers",
	}, func() float64 {
		return float64(hub.ClientCount())
	})
}
