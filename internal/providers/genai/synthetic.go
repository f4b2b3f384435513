package genai

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"
)

const (
	syntheticScheme          = "synthetic://video/"
	syntheticOperationPrefix = "synthetic/operations/"

	// SpeechSampleRate is the PCM sample rate of Gemini TTS output.
	SpeechSampleRate = 24000
)

func syntheticText(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if len(prompt) > 120 {
		prompt = prompt[:120]
	}
	seed := deterministicSeed(prompt)
	return fmt.Sprintf("✨ %s\n\n#omniscore #draft%s", prompt, seed[:6])
}

func (c *Client) syntheticImage(req ImageRequest) *InlineData {
	width, height := normalizeAspect(req.AspectRatio)
	var sourceSum string
	if req.Source != nil {
		sum := sha256.Sum256(req.Source.Data)
		sourceSum = hex.EncodeToString(sum[:8])
	}
	seed := deterministicSeed(req.Model, req.Prompt, req.AspectRatio, req.ImageSize, sourceSum)

	c.logger.Debug().
		Str("model", req.Model).
		Str("seed", seed).
		Msg("genai: generated synthetic image")

	return &InlineData{MimeType: "image/png", Data: renderSyntheticImage(width/4, height/4, seed)}
}

// syntheticSpeech renders a short tone whose length follows the text, as
// 16-bit little endian mono PCM.
func syntheticSpeech(text string) *InlineData {
	words := len(strings.Fields(text))
	seconds := 0.3 * float64(words)
	if seconds < 0.5 {
		seconds = 0.5
	}
	if seconds > 10 {
		seconds = 10
	}
	samples := int(seconds * SpeechSampleRate)
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(0.2 * math.MaxInt16 * math.Sin(2*math.Pi*440*float64(i)/SpeechSampleRate))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return &InlineData{MimeType: "audio/L16;codec=pcm;rate=24000", Data: buf}
}

func (c *Client) syntheticOperation(req VideoRequest) *Operation {
	seed := deterministicSeed(req.Model, req.Prompt, req.AspectRatio, string(req.Video), req.Image != nil)

	c.logger.Debug().
		Str("model", req.Model).
		Str("seed", seed).
		Msg("genai: submitted synthetic video operation")

	return &Operation{Name: syntheticOperationPrefix + seed}
}

func syntheticDone(name string) *Operation {
	seed := strings.TrimPrefix(name, syntheticOperationPrefix)
	ref, _ := json.Marshal(map[string]string{"uri": syntheticScheme + seed})
	op := &Operation{Name: name, Done: true, Response: &operationResponse{}}
	op.Response.GenerateVideoResponse.GeneratedSamples = []generatedSample{{Video: ref}}
	return op
}

func renderSyntheticImage(width, height int, seed string) []byte {
	if width <= 0 {
		width = 256
	}
	if height <= 0 {
		height = 256
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(8, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(8, width/32) {
		for y := 0; y < height; y++ {
			xx := x + y
			if xx >= width {
				break
			}
			img.Set(xx, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func renderSyntheticVideo(seed string) []byte {
	lines := []string{
		"Synthetic Veo video placeholder",
		fmt.Sprintf("Seed: %s", seed),
		"",
		"Set GEMINI_API_KEY to render real clips.",
	}
	return []byte(strings.Join(lines, "\n"))
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: parseHexByte(segment[0:2]), G: parseHexByte(segment[2:4]), B: parseHexByte(segment[4:6]), A: 255}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", p)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func normalizeAspect(aspect string) (int, int) {
	parts := strings.Split(strings.TrimSpace(aspect), ":")
	if len(parts) == 2 {
		a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
		b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errA == nil && errB == nil && a > 0 && b > 0 {
			if a >= b {
				return 1024, 1024 * b / a
			}
			return 1024 * a / b, 1024
		}
	}
	return 1024, 1024
}
