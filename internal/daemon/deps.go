// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler serves the web UI, files and JSON API
	APIHandler http.Handler

	// MetricsHandler is the HTTP handler for Prometheus metrics (if enabled)
	MetricsHandler http.Handler

	// MetricsAddr is the listen address of the metrics server; empty disables it
	MetricsAddr string
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
