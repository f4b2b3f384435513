package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"omniscore/internal/infra"
	"omniscore/internal/providers/genai"
)

var (
	// ErrOperationFailed covers every way a clip generation can fail:
	// submission, polling, a terminal operation error or an empty result.
	ErrOperationFailed = errors.New("video operation failed")
	// ErrNoMedia additionally marks operations that finished without a clip.
	ErrNoMedia = errors.New("video operation returned no media")
)

const defaultPollEvery = 10 * time.Second

// Options tunes the Veo poller.
type Options struct {
	// FastModel serves image seeded requests, ChainModel token seeded ones.
	FastModel  string
	ChainModel string
	Resolution string
	PollEvery  time.Duration
	Logger     *infra.Logger
}

// VEO submits long-running Veo operations, polls them to completion and
// stores the resulting clip.
type VEO struct {
	client OperationClient
	store  BlobWriter
	opts   Options
	logger infra.Logger
}

// NewVEO wires the poller to a Gemini client and a blob store.
func NewVEO(client OperationClient, store BlobWriter, opts Options) *VEO {
	if opts.PollEvery <= 0 {
		opts.PollEvery = defaultPollEvery
	}
	if opts.Resolution == "" {
		opts.Resolution = "720p"
	}
	if opts.ChainModel == "" {
		opts.ChainModel = opts.FastModel
	}
	logger := infra.NopLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &VEO{
		client: client,
		store:  store,
		opts:   opts,
		logger: infra.Component(logger, "veo"),
	}
}

// Generate runs one operation end to end. Every failure, including context
// cancellation while polling, is reported as ErrOperationFailed.
func (v *VEO) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Image != nil && req.Token != "" {
		return nil, fmt.Errorf("%w: both image and continuation token supplied", ErrOperationFailed)
	}
	if req.Image == nil && req.Token == "" {
		return nil, fmt.Errorf("%w: image or continuation token required", ErrOperationFailed)
	}

	model := v.opts.FastModel
	var ref json.RawMessage
	if req.Token != "" {
		if !json.Valid([]byte(req.Token)) {
			return nil, fmt.Errorf("%w: malformed continuation token", ErrOperationFailed)
		}
		model = v.opts.ChainModel
		ref = json.RawMessage(req.Token)
	}

	started := time.Now()
	op, err := v.client.StartVideo(ctx, genai.VideoRequest{
		Model:       model,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Resolution:  v.opts.Resolution,
		Image:       req.Image,
		Video:       ref,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: submit: %w", ErrOperationFailed, err)
	}

	log := v.logger.With().Str("operation", op.Name).Str("model", model).Logger()
	log.Info().Msg("video operation submitted")

	polls := 0
	for !op.Done {
		select {
		case <-time.After(v.opts.PollEvery):
		case <-ctx.Done():
			log.Warn().Int("polls", polls).Msg("video operation polling cancelled")
			return nil, fmt.Errorf("%w: %w", ErrOperationFailed, ctx.Err())
		}
		polls++
		name := op.Name
		op, err = v.client.GetOperation(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: poll %s: %w", ErrOperationFailed, name, err)
		}
	}

	if op.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrOperationFailed, op.Error)
	}
	videos := op.Videos()
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrOperationFailed, ErrNoMedia)
	}
	first := videos[0]
	uri := genai.VideoURI(first)
	if uri == "" {
		return nil, fmt.Errorf("%w: %w", ErrOperationFailed, ErrNoMedia)
	}

	data, _, err := v.client.Download(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %w", ErrOperationFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrOperationFailed, ErrNoMedia)
	}

	key, err := v.store.Write(ctx, "videos/"+uuid.NewString()+".mp4", data)
	if err != nil {
		return nil, fmt.Errorf("%w: store: %w", ErrOperationFailed, err)
	}
	locator := v.store.URL(key)

	log.Info().
		Int("polls", polls).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(started)).
		Msg("video operation completed")

	return &Result{Locator: locator, Token: string(first)}, nil
}

var _ Generator = (*VEO)(nil)
