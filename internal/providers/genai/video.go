package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// VideoRequest starts a Veo long-running generation. Image and Video are
// mutually exclusive seeds; Video is an opaque reference returned by a
// previous operation and is sent back verbatim.
type VideoRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	Resolution  string
	Image       *InlineData
	Video       json.RawMessage
}

// Operation mirrors the long-running operation resource.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *OperationError    `json:"error,omitempty"`
	Response *operationResponse `json:"response,omitempty"`
}

// OperationError is the terminal error of a failed operation.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation error %d: %s", e.Code, e.Message)
}

type operationResponse struct {
	GenerateVideoResponse struct {
		GeneratedSamples []generatedSample `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

type generatedSample struct {
	Video json.RawMessage `json:"video"`
}

// Videos returns the opaque references of every generated sample.
func (o *Operation) Videos() []json.RawMessage {
	if o == nil || o.Response == nil {
		return nil
	}
	var out []json.RawMessage
	for _, sample := range o.Response.GenerateVideoResponse.GeneratedSamples {
		if len(sample.Video) > 0 && string(sample.Video) != "null" {
			out = append(out, sample.Video)
		}
	}
	return out
}

// VideoURI extracts the download URI from a video reference.
func VideoURI(ref json.RawMessage) string {
	var v struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(ref, &v); err != nil {
		return ""
	}
	return v.URI
}

type predictRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string          `json:"prompt"`
	Image  *videoImage     `json:"image,omitempty"`
	Video  json.RawMessage `json:"video,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	SampleCount int    `json:"sampleCount"`
}

// StartVideo submits a predictLongRunning request and returns the pending operation.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Image != nil && len(req.Video) > 0 {
		return nil, fmt.Errorf("genai: video request takes an image or a video reference, not both")
	}
	if c.Offline() {
		return c.syntheticOperation(req), nil
	}

	instance := videoInstance{Prompt: req.Prompt, Video: req.Video}
	if req.Image != nil {
		wire := req.Image.wire()
		instance.Image = &videoImage{BytesBase64Encoded: wire.Data, MimeType: wire.MimeType}
	}
	payload := predictRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			AspectRatio: req.AspectRatio,
			Resolution:  req.Resolution,
			SampleCount: 1,
		},
	}

	var op Operation
	if err := c.invoke(ctx, http.MethodPost, modelPath(req.Model, "predictLongRunning"), payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("genai: operation name missing")
	}

	c.logger.Debug().
		Str("model", req.Model).
		Str("operation", op.Name).
		Bool("chained", len(req.Video) > 0).
		Msg("genai: submitted video operation")

	return &op, nil
}

// GetOperation refreshes a long-running operation by name.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(name, syntheticOperationPrefix) {
		return syntheticDone(name), nil
	}

	var op Operation
	if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}
