package model

import "time"

// Figure is a historical person the system can impersonate. Its name is the
// partition key for vector retrieval, so it must stay unique.
type Figure struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Era         string    `gorm:"size:128" json:"era"`
	Avatar      string    `gorm:"size:512" json:"avatar"`
	Description string    `gorm:"type:text" json:"description"`
	Bio         string    `gorm:"type:text" json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
}
