package video

import (
	"context"

	"omniscore/internal/providers/genai"
	"omniscore/internal/storage"
)

// Request describes one clip generation. Image and Token are mutually
// exclusive seeds: Image animates a still, Token continues a previous clip.
type Request struct {
	Prompt      string
	AspectRatio string
	Image       *genai.InlineData
	Token       string
}

// Result is a finished clip. Locator is a playable URL of the stored bytes,
// Token is the opaque reference a later extend, edit or trim consumes.
type Result struct {
	Locator string
	Token   string
}

// Generator produces clips.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// OperationClient is the slice of the Gemini API the poller needs.
type OperationClient interface {
	StartVideo(ctx context.Context, req genai.VideoRequest) (*genai.Operation, error)
	GetOperation(ctx context.Context, name string) (*genai.Operation, error)
	Download(ctx context.Context, uri string) ([]byte, string, error)
}

// BlobWriter persists downloaded bytes. Write returns the canonical key,
// URL maps it to a playable address.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	URL(key string) string
}

var (
	_ OperationClient = (*genai.Client)(nil)
	_ BlobWriter      = (*storage.FileStore)(nil)
)
