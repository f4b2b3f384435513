package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"omniscore/internal/infra"
)

// ErrOffline is returned for calls that have no synthetic counterpart when
// the client runs without an API key.
var ErrOffline = errors.New("genai: offline mode")

// ErrNoContent is returned when a response carries no usable part.
var ErrNoContent = errors.New("genai: no content returned")

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini REST API. Without an API key it
// runs offline and serves deterministic synthetic media so the rest of the
// service stays usable in local and CI environments.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		l := infra.NopLogger()
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}
}

// Offline reports whether the client serves synthetic results.
func (c *Client) Offline() bool {
	return c.apiKey == ""
}

// TextRequest asks a text model for a completion.
type TextRequest struct {
	Model        string
	Prompt       string
	GoogleSearch bool
}

// TextResponse carries the concatenated text and any grounding sources.
type TextResponse struct {
	Text    string
	Sources []string
}

// GenerateText calls generateContent and returns the text parts of the first
// candidate. Search grounded requests also return the cited web URIs.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Offline() {
		if req.GoogleSearch {
			return nil, ErrOffline
		}
		return &TextResponse{Text: syntheticText(req.Prompt)}, nil
	}

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	if req.GoogleSearch {
		payload.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	var resp generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, modelPath(req.Model, "generateContent"), payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoContent
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	for _, p := range candidate.Content.Parts {
		b.WriteString(p.Text)
	}
	out := &TextResponse{Text: b.String()}
	if candidate.GroundingMetadata != nil {
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				out.Sources = append(out.Sources, chunk.Web.URI)
			}
		}
	}

	c.logger.Debug().
		Str("model", req.Model).
		Int("chars", len(out.Text)).
		Int("sources", len(out.Sources)).
		Msg("genai: generated text")

	return out, nil
}

// ImageRequest asks an image model to create or edit a picture. When Source
// is set the prompt is applied as an edit instruction to it.
type ImageRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	ImageSize   string
	Source      *InlineData
}

// GenerateImage returns the first inline image of the response.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*InlineData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Offline() {
		return c.syntheticImage(req), nil
	}

	var parts []part
	if req.Source != nil {
		parts = append(parts, part{InlineData: req.Source.wire()})
	}
	parts = append(parts, part{Text: req.Prompt})
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	}
	if req.AspectRatio != "" || req.ImageSize != "" {
		payload.GenerationConfig = &generationConfig{
			ImageConfig: &imageConfig{AspectRatio: req.AspectRatio, ImageSize: req.ImageSize},
		}
	}

	var resp generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, modelPath(req.Model, "generateContent"), payload, &resp); err != nil {
		return nil, err
	}
	data, err := firstInline(resp)
	if err != nil {
		return nil, err
	}
	if data.MimeType == "" {
		data.MimeType = "image/png"
	}

	c.logger.Debug().
		Str("model", req.Model).
		Bool("edit", req.Source != nil).
		Int("bytes", len(data.Data)).
		Msg("genai: generated image")

	return data, nil
}

// SpeechRequest asks a TTS model to read text with a prebuilt voice.
type SpeechRequest struct {
	Model string
	Text  string
	Voice string
}

// GenerateSpeech returns the raw audio part, 16-bit little endian PCM at
// 24 kHz for the Gemini TTS models.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) (*InlineData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Offline() {
		return syntheticSpeech(req.Text), nil
	}

	payload := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: req.Text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: req.Voice}},
			},
		},
	}

	var resp generateContentResponse
	if err := c.invoke(ctx, http.MethodPost, modelPath(req.Model, "generateContent"), payload, &resp); err != nil {
		return nil, err
	}
	data, err := firstInline(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", req.Model).
		Int("bytes", len(data.Data)).
		Msg("genai: generated speech")

	return data, nil
}

// Download fetches a generated file. Gemini file URIs require the API key
// as a query parameter.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	if strings.HasPrefix(uri, syntheticScheme) {
		return renderSyntheticVideo(strings.TrimPrefix(uri, syntheticScheme)), "video/mp4", nil
	}

	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func modelPath(model, method string) string {
	return fmt.Sprintf("/models/%s:%s", url.PathEscape(model), method)
}

func firstInline(resp generateContentResponse) (*InlineData, error) {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			return decodeInline(p.InlineData)
		}
	}
	return nil, ErrNoContent
}
