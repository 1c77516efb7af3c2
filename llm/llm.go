// Package llm wraps the language generation providers behind Generator.
package llm

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/abimbolaoige/KFM-Counsel-Chat/config"
)

// SystemPrompt is the counsellor persona sent with every chat.
//
//go:embed system_prompt.txt
var SystemPrompt string

const (
	// FallbackReply replaces any failed or empty chat generation.
	FallbackReply = "I apologize, I am having trouble responding right now. Let us pray for a moment of clarity."

	fallbackPrayerText      = "Lord Jesus, I ask for Your peace to guard my heart and mind. I declare that You are faithful to complete the good work You began in me."
	fallbackPrayerScripture = "Philippians 1:6"
)

// Prayer is a generated prayer with its anchoring verse.
type Prayer struct {
	Prayer    string `json:"prayer"`
	Scripture string `json:"scripture"`
}

// FallbackPrayer is returned when prayer generation fails.
func FallbackPrayer() Prayer {
	return Prayer{Prayer: fallbackPrayerText, Scripture: fallbackPrayerScripture}
}

// Generator produces chat replies and prayers. Chats are stateful per chatID.
type Generator interface {
	SendMessage(ctx context.Context, chatID, text string) (string, error)
	GeneratePrayer(ctx context.Context, topic string) (Prayer, error)
	EndChat(chatID string)
}

// ErrEmptyResponse is returned when the provider answered without text.
var ErrEmptyResponse = errors.New("llm: empty response")

// ErrNotConfigured is returned by the Unavailable generator.
var ErrNotConfigured = errors.New("llm: api key missing")

// PrayerPrompt builds the prayer request for topic.
func PrayerPrompt(topic string) string {
	return fmt.Sprintf(`Write a short, heartfelt, personalized prayer addressing God directly (use "I" or "We", e.g., "Lord, I come to you...") regarding: %s. Start with a petition or conversation with God, and end with a short declaration of faith.

Instructions:
1. Use "Jesus Christ", "Jesus", or "Christ" specifically where necessary and required to anchor the prayer.
2. CRITICAL: Include one specific bible verse (text and reference) that is NOT generic, but strictly aligns with the specific nuances of the request regarding "%s" and anchors this prayer.`, topic, topic)
}

func parsePrayer(raw string) (Prayer, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	var p Prayer
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return Prayer{}, fmt.Errorf("llm: decode prayer: %w", err)
	}
	if strings.TrimSpace(p.Prayer) == "" {
		return Prayer{}, ErrEmptyResponse
	}
	return p, nil
}

// FailureKind classifies provider errors for logging.
type FailureKind string

const (
	FailureUnknown   FailureKind = "unknown"
	FailureAuth      FailureKind = "auth"
	FailureQuota     FailureKind = "quota"
	FailureRateLimit FailureKind = "rate_limit"
	FailureTimeout   FailureKind = "timeout"
)

// Classify maps a provider error to a FailureKind. The result is for logs
// only; callers never show provider errors to users.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	if errors.Is(err, ErrNotConfigured) {
		return FailureAuth
	}

	status := 0
	msg := strings.ToLower(err.Error())
	var gerr genai.APIError
	var gerrPtr *genai.APIError
	var oerr *openai.APIError
	var oreq *openai.RequestError
	switch {
	case errors.As(err, &gerr):
		status = gerr.Code
	case errors.As(err, &gerrPtr):
		status = gerrPtr.Code
	case errors.As(err, &oerr):
		status = oerr.HTTPStatusCode
	case errors.As(err, &oreq):
		status = oreq.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests && strings.Contains(msg, "quota"):
		return FailureQuota
	case status == http.StatusTooManyRequests:
		return FailureRateLimit
	case status == http.StatusForbidden && strings.Contains(msg, "quota"):
		return FailureQuota
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		strings.Contains(msg, "api key not valid"):
		return FailureAuth
	}
	return FailureUnknown
}

// New builds the generator selected by cfg.Provider. A missing API key
// yields Unavailable, so every call degrades to the fallbacks.
func New(ctx context.Context, cfg config.LLM) (Generator, error) {
	if cfg.APIKey == "" {
		return Unavailable{}, nil
	}
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg)
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// Unavailable is a Generator that always fails with ErrNotConfigured.
type Unavailable struct{}

func (Unavailable) SendMessage(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unavailable) GeneratePrayer(context.Context, string) (Prayer, error) {
	return Prayer{}, ErrNotConfigured
}

func (Unavailable) EndChat(string) {}
