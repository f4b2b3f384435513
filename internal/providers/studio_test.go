package providers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
	"omniscore/internal/pipeline"
	"omniscore/internal/providers/genai"
	"omniscore/internal/providers/image"
	"omniscore/internal/providers/prompt"
	"omniscore/internal/providers/video"
	"omniscore/internal/storage"
)

type captionFunc func(ctx context.Context, req prompt.CaptionRequest) (string, error)

func (f captionFunc) Caption(ctx context.Context, req prompt.CaptionRequest) (string, error) {
	return f(ctx, req)
}

type fakeImages struct {
	generated image.GenerateRequest
	edited    image.EditRequest
}

func (f *fakeImages) Generate(_ context.Context, req image.GenerateRequest) (string, error) {
	f.generated = req
	return "data:image/png;base64,Z2Vu", nil
}

func (f *fakeImages) Edit(_ context.Context, req image.EditRequest) (string, error) {
	f.edited = req
	return "data:image/png;base64,ZWRpdA==", nil
}

type fakeVideos struct {
	req video.Request
	err error
}

func (f *fakeVideos) Generate(_ context.Context, req video.Request) (*video.Result, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &video.Result{Locator: "http://blobs/v.mp4", Token: `{"uri":"x"}`}, nil
}

type speechFunc func(ctx context.Context, text string) ([]byte, error)

func (f speechFunc) Synthesize(ctx context.Context, text string) ([]byte, error) { return f(ctx, text) }

func TestStudioDelegatesToAdapters(t *testing.T) {
	images := &fakeImages{}
	var captionReq prompt.CaptionRequest
	s := NewStudio(Adapters{
		Captioner: captionFunc(func(_ context.Context, req prompt.CaptionRequest) (string, error) {
			captionReq = req
			return "caption!", nil
		}),
		Images: images,
		Speech: speechFunc(func(_ context.Context, text string) ([]byte, error) { return []byte(text), nil }),
	})
	ctx := context.Background()

	got, err := s.Caption(ctx, "coffee", domain.ContentTypeReel)
	require.NoError(t, err)
	assert.Equal(t, "caption!", got)
	assert.Equal(t, prompt.CaptionRequest{Topic: "coffee", Type: domain.ContentTypeReel}, captionReq)

	_, err = s.GenerateImage(ctx, "coffee", domain.ImageSize2K, "9:16")
	require.NoError(t, err)
	assert.Equal(t, image.GenerateRequest{Prompt: "coffee", Size: domain.ImageSize2K, AspectRatio: "9:16"}, images.generated)

	edited, err := s.EditImage(ctx, "data:image/png;base64,eA==", "add a hat")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,ZWRpdA==", edited)
	assert.Equal(t, "add a hat", images.edited.Instruction)

	audio, err := s.GenerateSpeech(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), audio)
}

func TestStudioAnimateDecodesStill(t *testing.T) {
	videos := &fakeVideos{}
	s := NewStudio(Adapters{Videos: videos})

	res, err := s.GenerateVideo(context.Background(), pipeline.VideoRequest{
		Prompt:      "Animate this scene dynamically",
		AspectRatio: "16:9",
		SourceImage: (&genai.InlineData{MimeType: "image/png", Data: []byte("png")}).DataURI(),
	})
	require.NoError(t, err)
	assert.Equal(t, &pipeline.VideoResult{Locator: "http://blobs/v.mp4", Token: `{"uri":"x"}`}, res)
	require.NotNil(t, videos.req.Image)
	assert.Equal(t, []byte("png"), videos.req.Image.Data)
	assert.Equal(t, "16:9", videos.req.AspectRatio)
	assert.Empty(t, videos.req.Token)
}

func TestStudioContinuesToken(t *testing.T) {
	videos := &fakeVideos{}
	s := NewStudio(Adapters{Videos: videos})

	_, err := s.GenerateVideo(context.Background(), pipeline.VideoRequest{Prompt: "more", Token: "tok"})
	require.NoError(t, err)
	assert.Nil(t, videos.req.Image)
	assert.Equal(t, "tok", videos.req.Token)
}

func TestStudioVideoErrors(t *testing.T) {
	videos := &fakeVideos{err: video.ErrOperationFailed}
	s := NewStudio(Adapters{Videos: videos})

	_, err := s.GenerateVideo(context.Background(), pipeline.VideoRequest{Token: "tok"})
	assert.ErrorIs(t, err, video.ErrOperationFailed)

	_, err = s.GenerateVideo(context.Background(), pipeline.VideoRequest{SourceImage: "not-a-uri"})
	assert.True(t, errors.Is(err, image.ErrUnsupportedSource))
}

func TestGeminiStudioRunsOffline(t *testing.T) {
	blobs, err := storage.NewFileStore(t.TempDir(), "http://localhost:8080/static")
	require.NoError(t, err)
	cfg := &infra.Config{VideoModel: "veo-fast", VideoChainModel: "veo-chain", VideoPollEvery: time.Millisecond}
	s := NewGeminiStudio(genai.NewClient(genai.Options{}), blobs, cfg, infra.NopLogger())
	ctx := context.Background()

	img, err := s.GenerateImage(ctx, "mountain lake", domain.ImageSize1K, "1:1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img, "data:image/png;base64,"))

	clip, err := s.GenerateVideo(ctx, pipeline.VideoRequest{Prompt: "pan", AspectRatio: "16:9", SourceImage: img})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(clip.Locator, "http://localhost:8080/static/videos/"), clip.Locator)
	assert.NotEmpty(t, clip.Token)

	key, ok := blobs.KeyFromURL(clip.Locator)
	require.True(t, ok)
	data, err := blobs.Read(ctx, key)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	audio, err := s.GenerateSpeech(ctx, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, audio)
}
