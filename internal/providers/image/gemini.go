package image

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"omniscore/internal/providers/genai"
)

const maxSourceBytes = 20 << 20

// ImageClient is the Gemini surface used by the generator.
type ImageClient interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) (*genai.InlineData, error)
}

// GeminiOptions selects the models used for generation and editing.
type GeminiOptions struct {
	Model      string
	EditModel  string
	HTTPClient *http.Client
}

// GeminiGenerator creates pictures with the Gemini image models.
type GeminiGenerator struct {
	client     ImageClient
	model      string
	editModel  string
	httpClient *http.Client
}

func NewGeminiGenerator(client ImageClient, opts GeminiOptions) *GeminiGenerator {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GeminiGenerator{
		client:     client,
		model:      opts.Model,
		editModel:  opts.EditModel,
		httpClient: httpClient,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	img, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Model:       g.model,
		Prompt:      req.Prompt,
		AspectRatio: string(req.AspectRatio),
		ImageSize:   string(req.Size),
	})
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	return img.DataURI(), nil
}

// Edit sends the source picture followed by the instruction. The edited
// picture is always labelled image/png.
func (g *GeminiGenerator) Edit(ctx context.Context, req EditRequest) (string, error) {
	source, err := LoadSource(ctx, g.httpClient, req.Source)
	if err != nil {
		return "", err
	}
	img, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Model:  g.editModel,
		Prompt: req.Instruction,
		Source: source,
	})
	if err != nil {
		return "", fmt.Errorf("edit image: %w", err)
	}
	img.MimeType = "image/png"
	return img.DataURI(), nil
}

var _ Generator = (*GeminiGenerator)(nil)
