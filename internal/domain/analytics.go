package domain

import "time"

// ActivityDaily aggregates composer activity for one UTC day.
type ActivityDaily struct {
	Day             time.Time `json:"day"`
	ImagesGenerated int       `json:"images_generated"`
	VideosGenerated int       `json:"videos_generated"`
	PostsPublished  int       `json:"posts_published"`
	RequestSuccess  int       `json:"request_success"`
	RequestFail     int       `json:"request_fail"`
}

// PlatformSeries is one labelled point of a per platform chart.
type PlatformSeries struct {
	Label  string           `json:"label"`
	Values map[Platform]int `json:"values"`
}
