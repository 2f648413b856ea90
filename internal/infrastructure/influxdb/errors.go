package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
var (
	// ErrNotConnected indicates the client is not connected to InfluxDB.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates points of an export were rejected.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates the export is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
