package domain

import (
	"strings"
	"time"
)

// AssetKind enumerates asset types.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// MediaAsset represents a generated artifact kept in the asset library.
// Assets are immutable once created; edits produce new assets.
type MediaAsset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        AssetKind `json:"type"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	Size        string    `json:"size,omitempty"`
	AspectRatio string    `json:"aspect_ratio,omitempty"`
}

// ImageSize is the resolution tier requested from the image model.
type ImageSize string

const (
	ImageSize1K ImageSize = "1K"
	ImageSize2K ImageSize = "2K"
	ImageSize4K ImageSize = "4K"
)

// ImageSizes lists the supported tiers in display order.
var ImageSizes = []ImageSize{ImageSize1K, ImageSize2K, ImageSize4K}

// ParseImageSize validates a tier label.
func ParseImageSize(s string) (ImageSize, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, size := range ImageSizes {
		if string(size) == s {
			return size, true
		}
	}
	return "", false
}

// AspectRatio is an image or video frame ratio such as "16:9".
type AspectRatio string

// ImageAspectRatios are the ratios accepted for image generation, with
// their display labels.
var ImageAspectRatios = []struct {
	Ratio AspectRatio
	Label string
}{
	{"1:1", "Square"},
	{"2:3", "Portrait"},
	{"3:2", "Landscape"},
	{"3:4", "Classic"},
	{"4:3", "Classic LS"},
	{"9:16", "Story/Reel"},
	{"16:9", "Wide"},
	{"21:9", "Cinema"},
}

const (
	VideoAspectWide AspectRatio = "16:9"
	VideoAspectTall AspectRatio = "9:16"
)

// ValidImageAspect reports whether r is one of the eight image ratios.
func ValidImageAspect(r AspectRatio) bool {
	for _, item := range ImageAspectRatios {
		if item.Ratio == r {
			return true
		}
	}
	return false
}

// ValidVideoAspect reports whether r is one of the two video ratios.
func ValidVideoAspect(r AspectRatio) bool {
	return r == VideoAspectWide || r == VideoAspectTall
}
