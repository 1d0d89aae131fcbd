package models

import (
	"time"
)

// RefreshToken represents a JWT refresh token issued to an admin
type RefreshToken struct {
	BaseModel
	AdminID   string    `gorm:"size:36;index" json:"adminId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	Admin Admin `gorm:"foreignKey:AdminID" json:"-"`
}
