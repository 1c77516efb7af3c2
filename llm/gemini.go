package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/abimbolaoige/KFM-Counsel-Chat/config"
)

// Gemini talks to the Gemini API. Each chatID keeps its own genai chat so
// the model sees the conversation so far.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32

	mu    sync.Mutex
	chats map[string]*geminiChat
}

// geminiChat serialises turns; genai.Chat appends to its history unguarded.
type geminiChat struct {
	mu   sync.Mutex
	chat *genai.Chat
}

// NewGemini creates the client. cfg.BaseURL, when set, replaces the public
// endpoint, e.g. for a regional proxy.
func NewGemini(ctx context.Context, cfg config.LLM) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		chats:       make(map[string]*geminiChat),
	}, nil
}

func (g *Gemini) chat(ctx context.Context, chatID string) (*geminiChat, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.chats[chatID]; ok {
		return c, nil
	}
	c, err := g.client.Chats.Create(ctx, g.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	}, nil)
	if err != nil {
		return nil, err
	}
	entry := &geminiChat{chat: c}
	g.chats[chatID] = entry
	return entry, nil
}

func (g *Gemini) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	c, err := g.chat(ctx, chatID)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", err
	}
	out := resp.Text()
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

var prayerSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"prayer": {
			Type:        genai.TypeString,
			Description: "The personalized prayer text (Prayer to God + Declaration line)",
		},
		"scripture": {
			Type:        genai.TypeString,
			Description: "The full scripture text and reference (e.g. 'Trust in the Lord... - Proverbs 3:5') that specifically supports the prayer topic.",
		},
	},
	Required: []string{"prayer", "scripture"},
}

func (g *Gemini) GeneratePrayer(ctx context.Context, topic string) (Prayer, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(PrayerPrompt(topic)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   prayerSchema,
		},
	)
	if err != nil {
		return Prayer{}, err
	}
	text := resp.Text()
	if text == "" {
		return Prayer{}, ErrEmptyResponse
	}
	return parsePrayer(text)
}

func (g *Gemini) EndChat(chatID string) {
	g.mu.Lock()
	delete(g.chats, chatID)
	g.mu.Unlock()
}
