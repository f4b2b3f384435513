package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
	"omniscore/internal/providers/genai"
)

// ErrNoTrends is returned when the model answer holds no usable JSON array.
var ErrNoTrends = errors.New("trends: no trend array in response")

const discoveryPrompt = `Return a JSON array of the top 10 trending topics on social media right now (tech, lifestyle, business). Each item must have 'tag', 'volume', and 'sentiment' (positive/neutral/negative). Use this structure: [{"tag": "#Example", "volume": "1M", "sentiment": "positive"}]`

var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// Fallback is served whenever discovery fails.
func Fallback() []domain.Trend {
	return []domain.Trend{
		{Tag: "#OpenAI", Volume: "1.2M", Sentiment: domain.SentimentPositive, Sources: []string{}},
		{Tag: "#AppleEvent", Volume: "850K", Sentiment: domain.SentimentNeutral, Sources: []string{}},
		{Tag: "#CryptoMarket", Volume: "500K", Sentiment: domain.SentimentNegative, Sources: []string{}},
		{Tag: "#SustainableFashion", Volume: "210K", Sentiment: domain.SentimentPositive, Sources: []string{}},
		{Tag: "#RemoteWork2024", Volume: "150K", Sentiment: domain.SentimentNeutral, Sources: []string{}},
	}
}

// TextClient is the search grounded text surface used for discovery.
type TextClient interface {
	GenerateText(ctx context.Context, req genai.TextRequest) (*genai.TextResponse, error)
}

// Snapshot is the ticker state served to clients.
type Snapshot struct {
	Trends    []domain.Trend `json:"trends"`
	Fallback  bool           `json:"fallback"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Service discovers trending topics and caches the latest result.
type Service struct {
	client TextClient
	model  string
	logger infra.Logger
	now    func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewService(client TextClient, model string, logger infra.Logger) *Service {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	s := &Service{
		client: client,
		model:  model,
		logger: infra.Component(logger, "trends"),
		now:    time.Now,
	}
	s.snapshot = Snapshot{Trends: Fallback(), Fallback: true, UpdatedAt: s.now()}
	return s
}

// Discover asks the model for current trends. Every returned trend carries
// the grounding sources of the response.
func (s *Service) Discover(ctx context.Context) ([]domain.Trend, error) {
	resp, err := s.client.GenerateText(ctx, genai.TextRequest{
		Model:        s.model,
		Prompt:       discoveryPrompt,
		GoogleSearch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("discover trends: %w", err)
	}
	trends, err := Parse(resp.Text)
	if err != nil {
		return nil, err
	}
	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	for i := range trends {
		trends[i].Sources = sources
	}
	return trends, nil
}

// Parse extracts the first JSON array of trends embedded in free text.
func Parse(text string) ([]domain.Trend, error) {
	raw := arrayPattern.FindString(text)
	if raw == "" {
		return nil, ErrNoTrends
	}
	var items []struct {
		Tag       string `json:"tag"`
		Volume    string `json:"volume"`
		Sentiment string `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTrends, err)
	}
	out := make([]domain.Trend, 0, len(items))
	for _, item := range items {
		tag := strings.TrimSpace(item.Tag)
		if tag == "" {
			continue
		}
		out = append(out, domain.Trend{
			Tag:       tag,
			Volume:    strings.TrimSpace(item.Volume),
			Sentiment: normalizeSentiment(item.Sentiment),
		})
	}
	if len(out) == 0 {
		return nil, ErrNoTrends
	}
	return out, nil
}

func normalizeSentiment(s string) domain.Sentiment {
	switch domain.Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case domain.SentimentPositive:
		return domain.SentimentPositive
	case domain.SentimentNegative:
		return domain.SentimentNegative
	}
	return domain.SentimentNeutral
}

// Refresh runs discovery once and swaps the cached snapshot. A failure
// installs the fallback set and is only logged.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	trends, err := s.Discover(ctx)
	next := Snapshot{Trends: trends, UpdatedAt: s.now()}
	if err != nil {
		s.logger.Warn().Err(err).Msg("trend discovery failed, serving fallback")
		next.Trends = Fallback()
		next.Fallback = true
	} else {
		s.logger.Debug().Int("count", len(trends)).Msg("trends refreshed")
	}

	s.mu.Lock()
	s.snapshot = next
	s.mu.Unlock()
	return next
}

// Snapshot returns the cached ticker.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snapshot
	out.Trends = append([]domain.Trend(nil), s.snapshot.Trends...)
	return out
}

// Run refreshes immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = 30 * time.Minute
	}
	s.Refresh(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
