package llm

import (
	"context"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/abimbolaoige/KFM-Counsel-Chat/config"
)

// OpenAI talks to any OpenAI-compatible endpoint. Chat state is a bounded
// window of past turns kept in process.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	window      int

	mu      sync.Mutex
	history map[string][]openai.ChatCompletionMessage
}

func NewOpenAI(cfg config.LLM) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	window := cfg.HistorySize
	if window <= 0 {
		window = 10
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		window:      window,
		history:     make(map[string][]openai.ChatCompletionMessage),
	}
}

func (o *OpenAI) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	o.mu.Lock()
	past := append([]openai.ChatCompletionMessage(nil), o.history[chatID]...)
	o.mu.Unlock()

	msgs := make([]openai.ChatCompletionMessage, 0, len(past)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})
	msgs = append(msgs, past...)
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	msgs = append(msgs, user)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	reply := resp.Choices[0].Message.Content

	o.mu.Lock()
	h := append(o.history[chatID], user, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply})
	if len(h) > o.window {
		h = h[len(h)-o.window:]
	}
	o.history[chatID] = h
	o.mu.Unlock()
	return reply, nil
}

func (o *OpenAI) GeneratePrayer(ctx context.Context, topic string) (Prayer, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: `Reply with a JSON object {"prayer": string, "scripture": string}.`},
			{Role: openai.ChatMessageRoleUser, Content: PrayerPrompt(topic)},
		},
		Temperature: o.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Prayer{}, err
	}
	if len(resp.Choices) == 0 {
		return Prayer{}, ErrEmptyResponse
	}
	return parsePrayer(resp.Choices[0].Message.Content)
}

func (o *OpenAI) EndChat(chatID string) {
	o.mu.Lock()
	delete(o.history, chatID)
	o.mu.Unlock()
}
