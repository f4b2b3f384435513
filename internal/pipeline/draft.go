package pipeline

import (
	"fmt"
	"strings"
	"time"

	"omniscore/internal/domain"
)

// Draft holds the composer inputs the stages read from.
type Draft struct {
	Title           string             `json:"title"`
	Topic           string             `json:"topic"`
	Content         string             `json:"content"`
	ContentType     domain.ContentType `json:"content_type"`
	Platforms       []domain.Platform  `json:"platforms"`
	ImageSize       domain.ImageSize   `json:"image_size"`
	ImageAspect     domain.AspectRatio `json:"image_aspect"`
	EditPrompt      string             `json:"edit_prompt"`
	VideoPrompt     string             `json:"video_prompt"`
	VideoEditPrompt string             `json:"video_edit_prompt"`
	VideoAspect     domain.AspectRatio `json:"video_aspect"`
	ScheduledAt     *time.Time         `json:"scheduled_at,omitempty"`
}

// DefaultDraft mirrors a freshly opened composer.
func DefaultDraft() Draft {
	return Draft{
		ContentType: domain.ContentTypeText,
		Platforms:   []domain.Platform{domain.PlatformInstagram, domain.PlatformX},
		ImageSize:   domain.ImageSize1K,
		ImageAspect: "1:1",
		VideoAspect: domain.VideoAspectWide,
	}
}

func (d Draft) clone() Draft {
	out := d
	out.Platforms = append([]domain.Platform(nil), d.Platforms...)
	if d.ScheduledAt != nil {
		at := *d.ScheduledAt
		out.ScheduledAt = &at
	}
	return out
}

// DraftPatch updates selected draft fields; nil fields are left alone.
type DraftPatch struct {
	Title           *string            `json:"title,omitempty"`
	Topic           *string            `json:"topic,omitempty"`
	Content         *string            `json:"content,omitempty"`
	ContentType     *string            `json:"content_type,omitempty"`
	Platforms       *[]domain.Platform `json:"platforms,omitempty"`
	ImageSize       *string            `json:"image_size,omitempty"`
	ImageAspect     *string            `json:"image_aspect,omitempty"`
	EditPrompt      *string            `json:"edit_prompt,omitempty"`
	VideoPrompt     *string            `json:"video_prompt,omitempty"`
	VideoEditPrompt *string            `json:"video_edit_prompt,omitempty"`
	VideoAspect     *string            `json:"video_aspect,omitempty"`
	ScheduledAt     *time.Time         `json:"scheduled_at,omitempty"`
	ClearSchedule   bool               `json:"clear_schedule,omitempty"`
}

// apply validates the patch against d and returns the updated draft. The
// receiver is not modified when validation fails.
func (p DraftPatch) apply(d Draft) (Draft, error) {
	out := d.clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Topic != nil {
		out.Topic = *p.Topic
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.ContentType != nil {
		ct, ok := domain.ParseContentType(strings.ToLower(strings.TrimSpace(*p.ContentType)))
		if !ok {
			return d, fmt.Errorf("%w: content type %q", domain.ErrInvalidInput, *p.ContentType)
		}
		out.ContentType = ct
	}
	if p.Platforms != nil {
		seen := make(map[domain.Platform]bool)
		platforms := make([]domain.Platform, 0, len(*p.Platforms))
		for _, platform := range *p.Platforms {
			if !domain.ValidPlatform(platform) {
				return d, fmt.Errorf("%w: platform %q", domain.ErrInvalidInput, platform)
			}
			if seen[platform] {
				continue
			}
			seen[platform] = true
			platforms = append(platforms, platform)
		}
		out.Platforms = platforms
	}
	if p.ImageSize != nil {
		size, ok := domain.ParseImageSize(*p.ImageSize)
		if !ok {
			return d, fmt.Errorf("%w: image size %q", domain.ErrInvalidInput, *p.ImageSize)
		}
		out.ImageSize = size
	}
	if p.ImageAspect != nil {
		aspect := domain.AspectRatio(strings.TrimSpace(*p.ImageAspect))
		if !domain.ValidImageAspect(aspect) {
			return d, fmt.Errorf("%w: image aspect ratio %q", domain.ErrInvalidInput, *p.ImageAspect)
		}
		out.ImageAspect = aspect
	}
	if p.EditPrompt != nil {
		out.EditPrompt = *p.EditPrompt
	}
	if p.VideoPrompt != nil {
		out.VideoPrompt = *p.VideoPrompt
	}
	if p.VideoEditPrompt != nil {
		out.VideoEditPrompt = *p.VideoEditPrompt
	}
	if p.VideoAspect != nil {
		aspect := domain.AspectRatio(strings.TrimSpace(*p.VideoAspect))
		if !domain.ValidVideoAspect(aspect) {
			return d, fmt.Errorf("%w: video aspect ratio %q", domain.ErrInvalidInput, *p.VideoAspect)
		}
		out.VideoAspect = aspect
	}
	if p.ClearSchedule {
		out.ScheduledAt = nil
	} else if p.ScheduledAt != nil {
		at := *p.ScheduledAt
		out.ScheduledAt = &at
	}
	return out, nil
}
