package models

import (
	"time"
)

// Urgency of a counsellor intake request.
type Urgency string

const (
	UrgencyLow  Urgency = "low"
	UrgencyHigh Urgency = "high"
)

// EscalationStatus tracks intake handling.
type EscalationStatus string

const (
	EscalationPending   EscalationStatus = "pending"
	EscalationContacted EscalationStatus = "contacted"
)

// EscalationRequest is a request for a human counsellor.
type EscalationRequest struct {
	ID          uint             `json:"id" gorm:"primarykey"`
	UserID      string           `json:"-" gorm:"index;not null"`
	Name        string           `json:"name" gorm:"not null"`
	Contact     string           `json:"contact" gorm:"not null"`
	Urgency     Urgency          `json:"urgency" gorm:"type:varchar(10);not null"`
	Description string           `json:"description" gorm:"type:text"`
	Flagged     bool             `json:"flagged"` // description tripped the safety detector
	Status      EscalationStatus `json:"status" gorm:"type:varchar(20);default:'pending';not null"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the EscalationRequest model.
func (EscalationRequest) TableName() string {
	return "escalation_requests"
}
