package server

// Route path constants
const (
	RouteCallback = "/callback"
	RouteHealthz  = "/healthz"
)
