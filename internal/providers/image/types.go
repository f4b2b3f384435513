package image

import (
	"context"

	"omniscore/internal/domain"
)

// GenerateRequest describes a text-to-image call.
type GenerateRequest struct {
	Prompt      string
	Size        domain.ImageSize
	AspectRatio domain.AspectRatio
}

// EditRequest applies an instruction to an existing visual. Source is a
// data URI or an http(s) URL.
type EditRequest struct {
	Source      string
	Instruction string
}

// Generator is the contract implemented by image providers. Both calls
// return the resulting picture as a data URI.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Edit(ctx context.Context, req EditRequest) (string, error)
}
