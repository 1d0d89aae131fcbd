package models

import (
	"time"
)

// MessageStatus represents the status of a contact message
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusRead    MessageStatus = "read"
)

// ContactMessage is a message left through the public contact form.
type ContactMessage struct {
	BaseModel
	Name    string        `gorm:"size:255;not null" json:"name"`
	Phone   string        `gorm:"size:20" json:"phone,omitempty"`
	Email   string        `gorm:"size:255;index" json:"email,omitempty"`
	Message string        `gorm:"column:messages;type:text;not null" json:"message"`
	Status  MessageStatus `gorm:"size:20;default:'pending';index" json:"status"`
	ReadAt  *time.Time    `json:"readAt,omitempty"`
}
