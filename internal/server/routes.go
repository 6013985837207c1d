// Package server wires HTTP handlers into a ServeMux for the Ripple relay
// via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the WebSocket endpoint, health check, and static assets. When
// staticDir is empty the built-in chat page is served at the root.
func SetupRoutes(h *Hub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	} else {
		mux.HandleFunc("/", ChatPageHandler)
	}
	mux.HandleFunc("/healthz", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(h))
	return mux
}
