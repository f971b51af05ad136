package models

import "time"

// MaxChatMessageLength bounds chat content after trimming. Enforced at write
// time, not merely at display time.
const MaxChatMessageLength = 500

// ChatMessage belongs to exactly one stream. UserID is optional; anonymous
// viewers post with just a display name.
type ChatMessage struct {
	ID         string    `json:"id"`
	StreamID   string    `json:"streamId"`
	Content    string    `json:"content"`
	AuthorName string    `json:"authorName"`
	UserID     *string   `json:"userId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
