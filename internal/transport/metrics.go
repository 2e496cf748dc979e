// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"

	applog "spectra/internal/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes a prometheus registry at /metrics. Used when the
// websocket feed is disabled but overrun counters should still be scrapable.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics server listening on addr and starts
// serving immediately.
func NewMetricsServer(addr string, registry *prometheus.Registry) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	ms := &MetricsServer{
		server: &http.Server{Addr: addr, Handler: mux},
	}

	go func() {
		applog.Infof("MetricsServer: Serving /metrics on %s", addr)
		if err := ms.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("MetricsServer: Server error: %v", err)
		}
	}()

	return ms
}

// Close shuts down the metrics server.
func (ms *MetricsServer) Close() error {
	return ms.server.Close()
}
