package models

import (
	"time"
)

// TriageRecord is one completed assessment in a profile's history. Records
// are snapshots: never updated after insert.
type TriageRecord struct {
	ID      uint      `json:"-" gorm:"primaryKey"`
	OwnerID string    `json:"-" gorm:"index;not null"`
	Type    string    `json:"type" gorm:"type:varchar(20)"`
	Date    time.Time `json:"date" gorm:"index"`
	Score   int       `json:"score"`
	Summary string    `json:"summary"`
}

// TableName specifies the table name for the TriageRecord model.
func (TriageRecord) TableName() string {
	return "triage_records"
}
