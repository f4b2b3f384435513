package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
	"omniscore/internal/pipeline"
	"omniscore/internal/providers/genai"
	"omniscore/internal/providers/image"
	"omniscore/internal/providers/prompt"
	"omniscore/internal/providers/speech"
	"omniscore/internal/providers/video"
)

// Adapters are the model backed building blocks of a Studio.
type Adapters struct {
	Captioner prompt.Captioner
	Images    image.Generator
	Videos    video.Generator
	Speech    speech.Synthesizer
	// HTTPClient fetches URL sourced stills before animation.
	HTTPClient *http.Client
}

// Studio composes the adapters into the generator the pipeline drives.
type Studio struct {
	Adapters
}

func NewStudio(a Adapters) *Studio {
	return &Studio{Adapters: a}
}

// NewGeminiStudio wires every adapter to one Gemini client using the
// configured models. Clips are stored through blobs.
func NewGeminiStudio(client *genai.Client, blobs video.BlobWriter, cfg *infra.Config, logger infra.Logger) *Studio {
	fetch := &http.Client{Timeout: 30 * time.Second}
	return NewStudio(Adapters{
		Captioner: prompt.NewGeminiCaptioner(client, cfg.CaptionModel),
		Images: image.NewGeminiGenerator(client, image.GeminiOptions{
			Model:      cfg.ImageModel,
			EditModel:  cfg.ImageEditModel,
			HTTPClient: fetch,
		}),
		Videos: video.NewVEO(client, blobs, video.Options{
			FastModel:  cfg.VideoModel,
			ChainModel: cfg.VideoChainModel,
			Resolution: cfg.VideoResolution,
			PollEvery:  cfg.VideoPollEvery,
			Logger:     &logger,
		}),
		Speech:     speech.NewGeminiSynthesizer(client, cfg.SpeechModel, cfg.SpeechVoice),
		HTTPClient: fetch,
	})
}

func (s *Studio) Caption(ctx context.Context, topic string, kind domain.ContentType) (string, error) {
	return s.Captioner.Caption(ctx, prompt.CaptionRequest{Topic: topic, Type: kind})
}

func (s *Studio) GenerateImage(ctx context.Context, text string, size domain.ImageSize, aspect domain.AspectRatio) (string, error) {
	return s.Images.Generate(ctx, image.GenerateRequest{Prompt: text, Size: size, AspectRatio: aspect})
}

func (s *Studio) EditImage(ctx context.Context, source, instruction string) (string, error) {
	return s.Images.Edit(ctx, image.EditRequest{Source: source, Instruction: instruction})
}

// GenerateVideo animates SourceImage when set, otherwise continues Token.
func (s *Studio) GenerateVideo(ctx context.Context, req pipeline.VideoRequest) (*pipeline.VideoResult, error) {
	vreq := video.Request{
		Prompt:      req.Prompt,
		AspectRatio: string(req.AspectRatio),
		Token:       req.Token,
	}
	if req.SourceImage != "" {
		still, err := image.LoadSource(ctx, s.HTTPClient, req.SourceImage)
		if err != nil {
			return nil, fmt.Errorf("load still: %w", err)
		}
		vreq.Image = still
	}
	res, err := s.Videos.Generate(ctx, vreq)
	if err != nil {
		return nil, err
	}
	return &pipeline.VideoResult{Locator: res.Locator, Token: res.Token}, nil
}

func (s *Studio) GenerateSpeech(ctx context.Context, text string) ([]byte, error) {
	return s.Speech.Synthesize(ctx, text)
}

var _ pipeline.Generator = (*Studio)(nil)
