package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"omniscore/internal/providers/genai"
)

const (
	// SampleRate of the PCM returned by Synthesize.
	SampleRate = genai.SpeechSampleRate

	instructionPrefix = "Say clearly and professionally: "
)

// ErrNoAudio is returned when the model answers without an audio part.
var ErrNoAudio = errors.New("speech: no audio returned")

// Synthesizer turns text into raw 16-bit little endian mono PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SpeechClient is the Gemini TTS surface.
type SpeechClient interface {
	GenerateSpeech(ctx context.Context, req genai.SpeechRequest) (*genai.InlineData, error)
}

// GeminiSynthesizer reads text with a prebuilt Gemini voice.
type GeminiSynthesizer struct {
	client SpeechClient
	model  string
	voice  string
}

func NewGeminiSynthesizer(client SpeechClient, model, voice string) *GeminiSynthesizer {
	if voice == "" {
		voice = "Kore"
	}
	return &GeminiSynthesizer{client: client, model: model, voice: voice}
}

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	audio, err := g.client.GenerateSpeech(ctx, genai.SpeechRequest{
		Model: g.model,
		Text:  instructionPrefix + strings.TrimSpace(text),
		Voice: g.voice,
	})
	if err != nil {
		if errors.Is(err, genai.ErrNoContent) {
			return nil, ErrNoAudio
		}
		return nil, fmt.Errorf("generate speech: %w", err)
	}
	if len(audio.Data) == 0 {
		return nil, ErrNoAudio
	}
	return audio.Data, nil
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)
