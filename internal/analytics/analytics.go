package analytics

import (
	"sort"
	"sync"
	"time"

	"omniscore/internal/domain"
)

const retainDays = 30

// Tracker counts finished pipeline runs per UTC day.
type Tracker struct {
	mu   sync.Mutex
	days map[time.Time]*domain.ActivityDaily
	now  func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{days: make(map[time.Time]*domain.ActivityDaily), now: time.Now}
}

// RecordRun counts one finished operation.
func (t *Tracker) RecordRun(op string, ok bool, at time.Time) {
	day := at.UTC().Truncate(24 * time.Hour)

	t.mu.Lock()
	defer t.mu.Unlock()

	d, found := t.days[day]
	if !found {
		d = &domain.ActivityDaily{Day: day}
		t.days[day] = d
		t.pruneLocked(day)
	}
	if !ok {
		d.RequestFail++
		return
	}
	d.RequestSuccess++
	switch op {
	case "image_generate", "image_edit":
		d.ImagesGenerated++
	case "video_animate", "video_extend", "video_edit", "video_trim":
		d.VideosGenerated++
	case "publish":
		d.PostsPublished++
	}
}

func (t *Tracker) pruneLocked(latest time.Time) {
	cutoff := latest.AddDate(0, 0, -retainDays)
	for day := range t.days {
		if day.Before(cutoff) {
			delete(t.days, day)
		}
	}
}

// Daily returns the last n days, oldest first. Days without activity are
// zero filled.
func (t *Tracker) Daily(n int) []domain.ActivityDaily {
	if n <= 0 || n > retainDays {
		n = 7
	}
	today := t.now().UTC().Truncate(24 * time.Hour)

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.ActivityDaily, 0, n)
	for i := n - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		if d, ok := t.days[day]; ok {
			out = append(out, *d)
			continue
		}
		out = append(out, domain.ActivityDaily{Day: day})
	}
	return out
}

// Totals sums the given days.
func Totals(days []domain.ActivityDaily) domain.ActivityDaily {
	var sum domain.ActivityDaily
	for _, d := range days {
		sum.ImagesGenerated += d.ImagesGenerated
		sum.VideosGenerated += d.VideosGenerated
		sum.PostsPublished += d.PostsPublished
		sum.RequestSuccess += d.RequestSuccess
		sum.RequestFail += d.RequestFail
	}
	if len(days) > 0 {
		sum.Day = days[len(days)-1].Day
	}
	return sum
}

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func series(rows [][5]int) []domain.PlatformSeries {
	out := make([]domain.PlatformSeries, len(rows))
	for i, row := range rows {
		out[i] = domain.PlatformSeries{
			Label: weekdays[i],
			Values: map[domain.Platform]int{
				domain.PlatformYouTube:   row[0],
				domain.PlatformInstagram: row[1],
				domain.PlatformX:         row[2],
				domain.PlatformTikTok:    row[3],
				domain.PlatformFacebook:  row[4],
			},
		}
	}
	return out
}

// WeeklyGrowth is the demo follower growth per platform.
func WeeklyGrowth() []domain.PlatformSeries {
	return series([][5]int{
		{1200, 800, 400, 1500, 600},
		{1900, 1100, 450, 2100, 750},
		{1700, 1400, 900, 1800, 820},
		{2400, 1600, 700, 2900, 950},
		{2100, 2000, 1100, 2400, 1100},
		{2800, 2400, 1300, 3500, 1350},
		{3200, 2100, 1500, 4200, 1200},
	})
}

// GlobalEngagement is the demo engagement index per platform.
func GlobalEngagement() []domain.PlatformSeries {
	return series([][5]int{
		{65, 45, 30, 70, 40},
		{68, 52, 28, 75, 42},
		{75, 58, 45, 82, 50},
		{72, 65, 38, 88, 55},
		{80, 72, 42, 94, 62},
		{92, 88, 55, 98, 68},
		{85, 72, 48, 94, 60},
	})
}

// Report is the analytics view payload.
type Report struct {
	Activity         []domain.ActivityDaily  `json:"activity"`
	Totals           domain.ActivityDaily    `json:"totals"`
	WeeklyGrowth     []domain.PlatformSeries `json:"weekly_growth"`
	GlobalEngagement []domain.PlatformSeries `json:"global_engagement"`
	TopPlatforms     []domain.Platform       `json:"top_platforms"`
}

// BuildReport combines live activity with the demo series. Platforms are
// ranked by their latest global engagement.
func (t *Tracker) BuildReport(days int) Report {
	activity := t.Daily(days)
	global := GlobalEngagement()
	latest := global[len(global)-1].Values

	top := append([]domain.Platform(nil), domain.Platforms...)
	sort.SliceStable(top, func(i, j int) bool { return latest[top[i]] > latest[top[j]] })

	return Report{
		Activity:         activity,
		Totals:           Totals(activity),
		WeeklyGrowth:     WeeklyGrowth(),
		GlobalEngagement: global,
		TopPlatforms:     top,
	}
}
