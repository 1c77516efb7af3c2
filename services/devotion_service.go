package services

import (
	"time"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// PrayerTopics are the suggested prayer generation topics.
var PrayerTopics = []string{
	"Restoring Trust",
	"Peace in Conflict",
	"Financial Wisdom",
	"Intimacy & Connection",
	"Patience & Kindness",
	"Future Direction",
}

// DailyVerses rotate as the verse of the day.
var DailyVerses = []models.Verse{
	{Text: "Be completely humble and gentle; be patient, bearing with one another in love.", Ref: "Ephesians 4:2"},
	{Text: "Above all, love each other deeply, because love covers over a multitude of sins.", Ref: "1 Peter 4:8"},
	{Text: "Let all that you do be done in love.", Ref: "1 Corinthians 16:14"},
	{Text: "Therefore what God has joined together, let no one separate.", Ref: "Mark 10:9"},
	{Text: "Bear with each other and forgive one another if any of you has a grievance against someone.", Ref: "Colossians 3:13"},
	{Text: "Two are better than one, because they have a good return for their labor.", Ref: "Ecclesiastes 4:9"},
}

// DevotionService serves the static devotional content of the home view.
type DevotionService interface {
	VerseOfDay(now time.Time) models.Verse
	Topics() []string
}

type devotionService struct {
	verses []models.Verse
	topics []string
}

func NewDevotionService() DevotionService {
	return &devotionService{verses: DailyVerses, topics: PrayerTopics}
}

// VerseOfDay picks by day of year; 1 January is day 1.
func (s *devotionService) VerseOfDay(now time.Time) models.Verse {
	return s.verses[now.YearDay()%len(s.verses)]
}

func (s *devotionService) Topics() []string {
	return append([]string(nil), s.topics...)
}
