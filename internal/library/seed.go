package library

import (
	"context"
	"time"

	"omniscore/internal/domain"
)

// SeedDemo loads the two showcase images the dashboard ships with.
func SeedDemo(ctx context.Context, l *Library) error {
	now := l.now()
	demo := []domain.MediaAsset{
		{
			ID:          "a2",
			Name:        "Lo-fi Study Room.png",
			Kind:        domain.AssetKindImage,
			URL:         "https://picsum.photos/seed/lofi/1000/1000",
			CreatedAt:   now.Add(-48 * time.Hour),
			Size:        "0.8 MB",
			AspectRatio: "1:1",
		},
		{
			ID:          "a1",
			Name:        "Cyberpunk Cityscape.png",
			Kind:        domain.AssetKindImage,
			URL:         "https://picsum.photos/seed/cyber/1200/800",
			CreatedAt:   now.Add(-24 * time.Hour),
			Size:        "1.2 MB",
			AspectRatio: "3:2",
		},
	}
	for _, asset := range demo {
		if _, err := l.Append(ctx, asset); err != nil {
			return err
		}
	}
	return nil
}
