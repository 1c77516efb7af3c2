package models

import "time"

// PrayerRequest is a community prayer request shared in the hub.
type PrayerRequest struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index;not null"`
	Author      string    `json:"author"`
	Text        string    `json:"text" gorm:"type:text;not null"`
	PrayerCount int       `json:"prayer_count" gorm:"default:0"`
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
}

// TableName specifies the table name for the PrayerRequest model.
func (PrayerRequest) TableName() string {
	return "prayer_requests"
}

// Testimony is a shared praise report, including answered prayers.
type Testimony struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Author    string    `json:"author"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

// TableName specifies the table name for the Testimony model.
func (Testimony) TableName() string {
	return "testimonies"
}
