// Package httpserver builds the HTTP server for the operational surface.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults. The handler only serves
// health, readiness and metrics; timeouts are tight accordingly.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
