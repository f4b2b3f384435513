package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"omniscore/internal/providers/genai"
)

// ErrUnsupportedSource is returned for sources that are neither data URIs
// nor http(s) URLs.
var ErrUnsupportedSource = errors.New("image: unsupported source")

// LoadSource resolves a visual reference into inline bytes. Data URIs are
// decoded in place; http(s) URLs are fetched with client.
func LoadSource(ctx context.Context, client *http.Client, source string) (*genai.InlineData, error) {
	if strings.HasPrefix(source, "data:") {
		return genai.ParseDataURI(source)
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return nil, ErrUnsupportedSource
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create source request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch source image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("read source image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	return &genai.InlineData{MimeType: mime, Data: data}, nil
}
