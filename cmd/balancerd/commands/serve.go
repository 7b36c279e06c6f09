package commands

import (
	"net/http"

	"github.com/darionyaphet/nebula-storage/internal/log"
	"github.com/darionyaphet/nebula-storage/internal/metrics"
)

// serveMetrics runs a promhttp server on addr for the life of the process.
// Started as a background goroutine from initLogging when --metrics-addr
// is set; a failure here is logged, not fatal, since it never blocks the
// balance job the command was invoked to run.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Logger.Error().Err(err).Str("addr", addr).Msg("metrics server exited")
	}
}
