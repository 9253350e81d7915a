package config

const (
	// Server configuration
	MetricsPort = ":2112"

	// Service identity
	ServiceName = "sentinel-search-probe"

	// Operation intervals
	ProbeInterval = 5 // seconds

	// Async calls allowed in flight
	MaxInFlight = 8
)
