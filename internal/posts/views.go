package posts

import (
	"sort"

	"omniscore/internal/domain"
)

const (
	highlightCount = 3
	leaderboardMax = 10
)

// Dashboard is the overview shown on the landing page.
type Dashboard struct {
	Top             []domain.Post   `json:"top"`
	Bottom          []domain.Post   `json:"bottom"`
	TotalPosts      int             `json:"total_posts"`
	TotalEngagement int             `json:"total_engagement"`
	AverageRating   float64         `json:"average_rating"`
	Platforms       []PlatformStats `json:"platforms"`
}

// PlatformStats aggregates posts per platform.
type PlatformStats struct {
	Platform   domain.Platform `json:"platform"`
	Posts      int             `json:"posts"`
	Engagement int             `json:"engagement"`
}

// CreatorStats is one leaderboard row.
type CreatorStats struct {
	Name            string          `json:"name"`
	Avatar          string          `json:"avatar"`
	IsPro           bool            `json:"is_pro"`
	TotalEngagement int             `json:"total_engagement"`
	PostCount       int             `json:"post_count"`
	AverageRating   float64         `json:"average_rating"`
	TopPlatform     domain.Platform `json:"top_platform"`
}

// BuildDashboard ranks posts by rating: the three best and the three worst,
// worst first.
func BuildDashboard(posts []domain.Post) Dashboard {
	sorted := make([]domain.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rating > sorted[j].Rating })

	d := Dashboard{
		Top:        head(sorted, highlightCount),
		TotalPosts: len(posts),
		Platforms:  PlatformBreakdown(posts),
	}

	reversed := make([]domain.Post, len(sorted))
	for i, p := range sorted {
		reversed[len(sorted)-1-i] = p
	}
	d.Bottom = head(reversed, highlightCount)

	ratingSum := 0
	for _, p := range posts {
		d.TotalEngagement += p.Engagement
		ratingSum += p.Rating
	}
	if len(posts) > 0 {
		d.AverageRating = float64(ratingSum) / float64(len(posts))
	}
	return d
}

// PlatformBreakdown counts posts and engagement for every known platform,
// in display order.
func PlatformBreakdown(posts []domain.Post) []PlatformStats {
	idx := make(map[domain.Platform]int, len(domain.Platforms))
	out := make([]PlatformStats, len(domain.Platforms))
	for i, platform := range domain.Platforms {
		idx[platform] = i
		out[i].Platform = platform
	}
	for _, p := range posts {
		i, ok := idx[p.Platform]
		if !ok {
			continue
		}
		out[i].Posts++
		out[i].Engagement += p.Engagement
	}
	return out
}

// Leaderboard aggregates authored posts per creator and returns the top ten
// by total engagement. Posts without an author are skipped. A creator's top
// platform is the one they post on most; ties go to the platform seen first.
func Leaderboard(posts []domain.Post) []CreatorStats {
	type acc struct {
		stats     CreatorStats
		ratingSum int
		counts    map[domain.Platform]int
		order     []domain.Platform
	}
	byName := make(map[string]*acc)
	var names []string

	// oldest first, so "seen first" follows publication order
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		if p.Author == nil || p.Author.Name == "" {
			continue
		}
		a, ok := byName[p.Author.Name]
		if !ok {
			a = &acc{
				stats:  CreatorStats{Name: p.Author.Name, Avatar: p.Author.Avatar, IsPro: p.Author.IsPro},
				counts: make(map[domain.Platform]int),
			}
			byName[p.Author.Name] = a
			names = append(names, p.Author.Name)
		}
		a.stats.TotalEngagement += p.Engagement
		a.stats.PostCount++
		a.ratingSum += p.Rating
		if a.counts[p.Platform] == 0 {
			a.order = append(a.order, p.Platform)
		}
		a.counts[p.Platform]++
	}

	out := make([]CreatorStats, 0, len(names))
	for _, name := range names {
		a := byName[name]
		best := 0
		for _, platform := range a.order {
			if a.counts[platform] > best {
				best = a.counts[platform]
				a.stats.TopPlatform = platform
			}
		}
		a.stats.AverageRating = float64(a.ratingSum) / float64(a.stats.PostCount)
		out = append(out, a.stats)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalEngagement > out[j].TotalEngagement })
	return head(out, leaderboardMax)
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
