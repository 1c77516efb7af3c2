package models

import (
	"time"
)

// Profile is the per-user settings document. The same shape is written to
// the local key-value store for guests, so AccessPin is serialised.
type Profile struct {
	UserID        string         `json:"user_id" gorm:"primaryKey"`
	Name          string         `json:"name"`
	SpouseName    string         `json:"spouse_name"`
	Anniversary   string         `json:"anniversary"` // YYYY-MM-DD, free form from the client
	AccessPin     string         `json:"access_pin,omitempty"`
	TriageHistory []TriageRecord `json:"triage_history,omitempty" gorm:"-"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// ProfileUpdate is a partial profile write; nil fields are left untouched.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	SpouseName  *string `json:"spouse_name"`
	Anniversary *string `json:"anniversary"`
	AccessPin   *string `json:"access_pin"`
}

// ProfileView is the profile as returned to clients: the PIN is reduced to
// a presence flag.
type ProfileView struct {
	Name          string         `json:"name"`
	SpouseName    string         `json:"spouse_name"`
	Anniversary   string         `json:"anniversary"`
	HasPin        bool           `json:"has_pin"`
	TriageHistory []TriageRecord `json:"triage_history"`
}

// View builds the client view of p.
func (p *Profile) View() ProfileView {
	history := p.TriageHistory
	if history == nil {
		history = []TriageRecord{}
	}
	return ProfileView{
		Name:          p.Name,
		SpouseName:    p.SpouseName,
		Anniversary:   p.Anniversary,
		HasPin:        p.AccessPin != "",
		TriageHistory: history,
	}
}
