package chat

import (
	"context"
	"fmt"
	"strings"

	gemini "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend opens chat sessions on the Gemini SDK.
type GeminiBackend struct {
	client *gemini.Client
	model  string
}

func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	client, err := gemini.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini chat client: %w", err)
	}
	if model == "" {
		model = "gemini-3-pro-preview"
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (b *GeminiBackend) NewSession(context.Context) (Session, error) {
	model := b.client.GenerativeModel(b.model)
	model.SystemInstruction = &gemini.Content{Parts: []gemini.Part{gemini.Text(SystemInstruction)}}
	return &geminiSession{cs: model.StartChat()}, nil
}

func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

type geminiSession struct {
	cs *gemini.ChatSession
}

func (s *geminiSession) Send(ctx context.Context, text string) (string, error) {
	resp, err := s.cs.SendMessage(ctx, gemini.Text(text))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(gemini.Text); ok {
				b.WriteString(string(txt))
			}
		}
		break
	}
	return b.String(), nil
}

var _ Backend = (*GeminiBackend)(nil)
