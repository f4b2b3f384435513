package image

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"omniscore/internal/domain"
	"omniscore/internal/providers/genai"
)

type stubImageClient struct {
	out      *genai.InlineData
	err      error
	requests []genai.ImageRequest
}

func (s *stubImageClient) GenerateImage(_ context.Context, req genai.ImageRequest) (*genai.InlineData, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestGeminiGeneratorGenerate(t *testing.T) {
	client := &stubImageClient{out: &genai.InlineData{MimeType: "image/png", Data: []byte("img")}}
	gen := NewGeminiGenerator(client, GeminiOptions{Model: "pro-image", EditModel: "flash-image"})

	uri, err := gen.Generate(context.Background(), GenerateRequest{
		Prompt:      "sunset beach",
		Size:        domain.ImageSize2K,
		AspectRatio: "16:9",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if uri != "data:image/png;base64,aW1n" {
		t.Fatalf("uri = %q", uri)
	}
	req := client.requests[0]
	if req.Model != "pro-image" || req.Prompt != "sunset beach" || req.ImageSize != "2K" || req.AspectRatio != "16:9" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestGeminiGeneratorEditDataURI(t *testing.T) {
	client := &stubImageClient{out: &genai.InlineData{MimeType: "image/jpeg", Data: []byte("out")}}
	gen := NewGeminiGenerator(client, GeminiOptions{Model: "pro-image", EditModel: "flash-image"})

	uri, err := gen.Edit(context.Background(), EditRequest{
		Source:      "data:image/jpeg;base64,aW4=",
		Instruction: "add retro filter",
	})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("edited image should be labelled png, got %q", uri)
	}
	req := client.requests[0]
	if req.Model != "flash-image" || req.Source == nil || string(req.Source.Data) != "in" || req.Source.MimeType != "image/jpeg" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.AspectRatio != "" || req.ImageSize != "" {
		t.Fatalf("edit should not send image config")
	}
}

func TestGeminiGeneratorEditFetchesRemoteSource(t *testing.T) {
	client := &stubImageClient{out: &genai.InlineData{MimeType: "image/png", Data: []byte("out")}}
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://picsum.photos/seed/lofi/1000/1000" {
			t.Fatalf("unexpected fetch %s", r.URL)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"image/jpeg"}},
			Body:       io.NopCloser(strings.NewReader("remote")),
		}, nil
	})}
	gen := NewGeminiGenerator(client, GeminiOptions{EditModel: "flash-image", HTTPClient: httpClient})

	if _, err := gen.Edit(context.Background(), EditRequest{
		Source:      "https://picsum.photos/seed/lofi/1000/1000",
		Instruction: "remove background",
	}); err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if got := client.requests[0].Source; string(got.Data) != "remote" || got.MimeType != "image/jpeg" {
		t.Fatalf("unexpected source %+v", got)
	}
}

func TestGeminiGeneratorPropagatesErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := NewGeminiGenerator(&stubImageClient{err: boom}, GeminiOptions{})

	if _, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "x"}); !errors.Is(err, boom) {
		t.Fatalf("Generate err = %v, want %v", err, boom)
	}
	if _, err := gen.Edit(context.Background(), EditRequest{Source: "data:image/png;base64,eA==", Instruction: "x"}); !errors.Is(err, boom) {
		t.Fatalf("Edit err = %v, want %v", err, boom)
	}
	if _, err := gen.Edit(context.Background(), EditRequest{Source: "ftp://x", Instruction: "x"}); !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("Edit err = %v, want %v", err, ErrUnsupportedSource)
	}
}
