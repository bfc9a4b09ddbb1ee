package handlers

import "net/http"

// Route documents one endpoint. The table drives both registration and the
// welcome payload.
type Route struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Routes is the fixed route table.
var Routes = []Route{
	{http.MethodGet, "/", "Welcome message and route listing"},
	{http.MethodGet, "/ping", "Liveness check, replies pong"},
	{http.MethodGet, "/healthz", "Health status with uptime and memory"},
	{http.MethodGet, "/info", "Service, platform and runtime details"},
	{http.MethodGet, "/version", "Service name, version and environment"},
	{http.MethodPost, "/echo", "Echoes the JSON body, headers and method"},
	{http.MethodGet, "/metrics", "Prometheus metrics when enabled"},
}
