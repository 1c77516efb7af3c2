package models

import "time"

// JournalCategory classifies a journal entry.
type JournalCategory string

const (
	JournalPrayer    JournalCategory = "prayer"
	JournalProgress  JournalCategory = "progress"
	JournalGratitude JournalCategory = "gratitude"
)

// Valid reports whether c is a known category.
func (c JournalCategory) Valid() bool {
	switch c {
	case JournalPrayer, JournalProgress, JournalGratitude:
		return true
	}
	return false
}

// JournalEntry is a private note, visible only to its owner.
type JournalEntry struct {
	ID       string          `json:"id" gorm:"primaryKey"`
	UserID   string          `json:"-" gorm:"index;not null"`
	Text     string          `json:"text" gorm:"type:text;not null"`
	Category JournalCategory `json:"category" gorm:"type:varchar(20);not null"`
	Date     time.Time       `json:"date" gorm:"index"`
}

// TableName specifies the table name for the JournalEntry model.
func (JournalEntry) TableName() string {
	return "journal_entries"
}
