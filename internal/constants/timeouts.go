package constants

import "time"

const (
	// HTTPTimeout bounds every gateway request.
	HTTPTimeout = 20 * time.Second

	// TransportRetryAttempts is the total attempt count for network
	// failures. API-level errors are never retried at this layer.
	TransportRetryAttempts = 2
	TransportRetryDelay    = 500 * time.Millisecond

	// Content request throttle: bucket capacity and refill per second.
	ContentRateBurst  = 4
	ContentRateRefill = 10

	// DevicePairingSettle is how long the backend needs after device
	// authorization before the session cookie validates.
	DevicePairingSettle = 2 * time.Second

	// DefaultPairingInterval is used when the activation response omits
	// a poll interval.
	DefaultPairingInterval = 5 * time.Second
)
