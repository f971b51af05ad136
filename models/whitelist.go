package models

import "time"

// WhitelistStatus is the application state. Transitions are admin-initiated
// and unconstrained: any status may overwrite any other.
type WhitelistStatus string

const (
	WhitelistPending  WhitelistStatus = "pending"
	WhitelistApproved WhitelistStatus = "approved"
	WhitelistRejected WhitelistStatus = "rejected"
)

// ValidWhitelistStatus reports whether s is one of the known statuses.
func ValidWhitelistStatus(s WhitelistStatus) bool {
	switch s {
	case WhitelistPending, WhitelistApproved, WhitelistRejected:
		return true
	}
	return false
}

// WhitelistApplication is a gating request from a wallet address for
// permission to create a stream or launch a token. At most one row exists per
// wallet address.
type WhitelistApplication struct {
	ID            string          `json:"id"`
	WalletAddress string          `json:"walletAddress"`
	UserID        *string         `json:"userId,omitempty"`
	TwitterURL    string          `json:"twitterUrl,omitempty"`
	TelegramURL   string          `json:"telegramUrl,omitempty"`
	WebsiteURL    string          `json:"websiteUrl,omitempty"`
	Pitch         string          `json:"pitch"`
	Status        WhitelistStatus `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
