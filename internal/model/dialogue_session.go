package model

import "time"

type DialogueSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	FigureID  uint      `gorm:"not null;index" json:"figure_id"`
	Figure    Figure    `gorm:"foreignKey:FigureID" json:"figure,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
