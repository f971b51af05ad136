package models

import "time"

// Stream models a creator's single live channel. There is at most one stream
// per user; the room name handed to the media service equals the stream ID.
type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Live         bool      `json:"live"`
	ViewerCount  int       `json:"viewerCount"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	TokenAddress *string   `json:"tokenAddress,omitempty"`
	EgressID     *string   `json:"egressId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
