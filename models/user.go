package models

import "time"

// User models a platform account. Wallet-linked accounts come in through the
// whitelist flow; the password hash backs the direct login provider.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName"`
	AvatarURL     *string   `json:"avatarUrl,omitempty"`
	WalletAddress *string   `json:"walletAddress,omitempty"`
	PasswordHash  string    `json:"-"`
	Admin         bool      `json:"admin"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
