package models

import (
	"time"
)

// RefreshToken is a stored JWT refresh token. Tokens are rotated on every
// refresh, so a user accumulates revoked rows until they expire.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Valid reports whether the token can still mint new access tokens.
func (t *RefreshToken) Valid() bool {
	return !t.IsRevoked && time.Now().Before(t.ExpiresAt)
}
