package model

// Citation ties an assistant message back to the retrieved source passage it
// was grounded on. Created only as a side effect of an assistant message
// commit, never updated.
type Citation struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	MessageID uint   `gorm:"not null;index" json:"message_id"`
	Source    string `gorm:"size:256;not null" json:"source"`
	TextQuote string `gorm:"type:text;not null" json:"text_quote"`
}
