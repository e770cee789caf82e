package models

import "time"

// FetchSample captures the outcome of one request against the gameserver.
type FetchSample struct {
	Endpoint  string    `json:"endpoint"`
	OK        bool      `json:"ok"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
