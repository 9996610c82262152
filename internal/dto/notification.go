package dto

// StartSessionRequest starts the caller's notification ticker.
type StartSessionRequest struct {
	TimeZone string `json:"time_zone" validate:"omitempty,timezone"`
}

// SessionStatus reports whether a ticker is running for the caller.
type SessionStatus struct {
	Active       bool   `json:"active"`
	TimeZone     string `json:"time_zone,omitempty"`
	TickInterval string `json:"tick_interval,omitempty"`
}
