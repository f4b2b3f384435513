package posts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"omniscore/internal/domain"
)

var postsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "omniscore_posts_published_total",
	Help: "Total number of posts published from the composer",
}, []string{"platform", "type"})

// Store keeps posts in memory, newest first.
type Store struct {
	mu    sync.RWMutex
	posts []domain.Post
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Publish validates and records a post.
func (s *Store) Publish(_ context.Context, post domain.Post) (domain.Post, error) {
	if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Content) == "" {
		return domain.Post{}, fmt.Errorf("%w: post title and content required", domain.ErrInvalidInput)
	}
	if !domain.ValidPlatform(post.Platform) {
		return domain.Post{}, fmt.Errorf("%w: platform %q", domain.ErrInvalidInput, post.Platform)
	}
	if _, ok := domain.ParseContentType(string(post.Type)); !ok {
		return domain.Post{}, fmt.Errorf("%w: content type %q", domain.ErrInvalidInput, post.Type)
	}
	if post.Type == "" {
		post.Type = domain.ContentTypeText
	}
	if post.Rating < 0 || post.Rating > 100 {
		return domain.Post{}, fmt.Errorf("%w: rating %d out of range", domain.ErrInvalidInput, post.Rating)
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.PostedAt.IsZero() {
		post.PostedAt = s.now()
	}

	s.mu.Lock()
	s.posts = append([]domain.Post{post}, s.posts...)
	s.mu.Unlock()

	postsPublishedTotal.WithLabelValues(string(post.Platform), string(post.Type)).Inc()
	return post, nil
}

// List returns every post, most recently published first.
func (s *Store) List() []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Get looks up a post by id.
func (s *Store) Get(id string) (domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Post{}, domain.ErrNotFound
}

// SeedDemo loads the showcase community posts.
func SeedDemo(ctx context.Context, s *Store) error {
	now := s.now()
	demo := []domain.Post{
		{
			ID:         "2",
			Type:       domain.ContentTypeText,
			Title:      "Morning Motivation",
			Content:    "Consistency beats talent when talent doesn't work hard.",
			Platform:   domain.PlatformX,
			Engagement: 8200,
			Rating:     95,
			PostedAt:   now.Add(-5 * time.Hour),
			Author:     &domain.Author{Name: "Mike Ross", Avatar: "https://i.pravatar.cc/150?u=mike", IsPro: true},
		},
		{
			ID:         "1",
			Type:       domain.ContentTypeReel,
			Title:      "AI Future in 60s",
			Content:    "Exploring how generative AI changes content creation workflows...",
			Platform:   domain.PlatformInstagram,
			Engagement: 15400,
			Rating:     98,
			PostedAt:   now.Add(-2 * time.Hour),
			ImageURL:   "https://picsum.photos/seed/ai/400/600",
			Author:     &domain.Author{Name: "Sarah Jenkins", Avatar: "https://i.pravatar.cc/150?u=sarah", IsPro: true},
		},
	}
	for _, p := range demo {
		if _, err := s.Publish(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
