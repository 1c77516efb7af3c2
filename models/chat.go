package models

import (
	"time"
)

// ChatMessage is one turn of a counselling chat transcript.
type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID string    `json:"-" gorm:"index"`
	UserID    string    `json:"-" gorm:"index"`
	Role      string    `json:"role"` // "user" or "model"
	Content   string    `json:"content" gorm:"type:text"`
	Flagged   bool      `json:"flagged"` // tripped the safety detector; never sent to the model
	Timestamp time.Time `json:"timestamp"`
}

// TableName specifies the table name for the ChatMessage model.
func (ChatMessage) TableName() string {
	return "chat_messages"
}
