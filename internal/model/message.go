package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	SessionID uint       `gorm:"not null;index" json:"session_id"`
	Role      string     `gorm:"size:16;not null" json:"role"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Citations []Citation `gorm:"foreignKey:MessageID" json:"citations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
