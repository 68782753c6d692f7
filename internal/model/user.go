package model

import "time"

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	FullName        string    `gorm:"size:128" json:"full_name"`
	PasswordHash    string    `gorm:"size:255;not null" json:"-"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	ActiveProjectID uint      `gorm:"index" json:"active_project_id"` // 0 = no active project
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
