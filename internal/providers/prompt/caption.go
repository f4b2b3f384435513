package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"omniscore/internal/domain"
	"omniscore/internal/providers/genai"
)

// ErrEmptyCaption is returned when the model answers with blank text.
var ErrEmptyCaption = errors.New("caption: empty response")

// CaptionRequest carries the draft inputs a caption is written from.
type CaptionRequest struct {
	Topic string
	Type  domain.ContentType
}

// Captioner writes post captions.
type Captioner interface {
	Caption(ctx context.Context, req CaptionRequest) (string, error)
}

// TextClient is the Gemini text surface used by the captioner.
type TextClient interface {
	GenerateText(ctx context.Context, req genai.TextRequest) (*genai.TextResponse, error)
}

// GeminiCaptioner asks a Gemini text model for an engaging caption.
type GeminiCaptioner struct {
	client TextClient
	model  string
}

func NewGeminiCaptioner(client TextClient, model string) *GeminiCaptioner {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &GeminiCaptioner{client: client, model: model}
}

func (g *GeminiCaptioner) Caption(ctx context.Context, req CaptionRequest) (string, error) {
	resp, err := g.client.GenerateText(ctx, genai.TextRequest{
		Model:  g.model,
		Prompt: BuildCaptionPrompt(req),
	})
	if err != nil {
		return "", fmt.Errorf("generate caption: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyCaption
	}
	return text, nil
}

// BuildCaptionPrompt renders the instruction sent to the text model.
func BuildCaptionPrompt(req CaptionRequest) string {
	kind := req.Type
	if kind == "" {
		kind = domain.ContentTypeText
	}
	return fmt.Sprintf(
		"Create a viral social media caption for a %s about: %s. Include relevant hashtags and emojis. Keep it engaging.",
		kind, strings.TrimSpace(req.Topic),
	)
}

var _ Captioner = (*GeminiCaptioner)(nil)
