package domain

import "time"

// ContentType enumerates the composer's post formats.
type ContentType string

const (
	ContentTypeText ContentType = "text"
	ContentTypeReel ContentType = "reel"
	ContentTypeVlog ContentType = "vlog"
)

// ParseContentType normalizes a content type, defaulting to text.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(s) {
	case ContentTypeText, ContentTypeReel, ContentTypeVlog:
		return ContentType(s), true
	case "":
		return ContentTypeText, true
	}
	return "", false
}

// Platform identifies a target social network.
type Platform string

const (
	PlatformX         Platform = "X"
	PlatformInstagram Platform = "Instagram"
	PlatformYouTube   Platform = "YouTube"
	PlatformTikTok    Platform = "TikTok"
	PlatformFacebook  Platform = "Facebook"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{PlatformX, PlatformInstagram, PlatformYouTube, PlatformTikTok, PlatformFacebook}

// ValidPlatform reports whether p is a supported platform.
func ValidPlatform(p Platform) bool {
	for _, known := range Platforms {
		if known == p {
			return true
		}
	}
	return false
}

// Author is the creator attached to community posts.
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	IsPro  bool   `json:"is_pro"`
}

// Post is a published or scheduled content record. Posts are never mutated.
type Post struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	Platform    Platform    `json:"platform"`
	Engagement  int         `json:"engagement"`
	Rating      int         `json:"rating"`
	PostedAt    time.Time   `json:"posted_at"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
	Author      *Author     `json:"author,omitempty"`
}
