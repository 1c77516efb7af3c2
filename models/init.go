package models

// Verse is a daily scripture.
type Verse struct {
	Text string `json:"text"`
	Ref  string `json:"ref"`
}

// InitResponse defines the structure for the /api/init endpoint response.
type InitResponse struct {
	UserType     string   `json:"user_type"` // "guest", "registered" or "anonymous"
	UserID       string   `json:"user_id,omitempty"`
	Name         string   `json:"name,omitempty"`
	VerseOfDay   Verse    `json:"verse_of_day"`
	PrayerTopics []string `json:"prayer_topics"`
	SafetyAlert  bool     `json:"safety_alert"`
	Unlocked     bool     `json:"unlocked"`
}
