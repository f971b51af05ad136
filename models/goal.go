package models

import "time"

// Goal is a creator-defined market-cap milestone for a (stream, token) pair.
// The full set for a pair is replaced wholesale on edit. Reached is monotonic:
// once true it never flips back, even if the market cap later drops below the
// threshold.
type Goal struct {
	ID              string     `json:"id"`
	StreamID        string     `json:"streamId"`
	TokenAddress    string     `json:"tokenAddress"`
	TargetMarketCap float64    `json:"targetMarketCap"`
	Description     string     `json:"description"`
	OrderIndex      int        `json:"orderIndex"`
	Reached         bool       `json:"reached"`
	ReachedAt       *time.Time `json:"reachedAt,omitempty"`
}
