package library

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"omniscore/internal/domain"
)

// EventType names a library change.
type EventType string

const (
	EventAssetAdded   EventType = "asset.added"
	EventAssetRemoved EventType = "asset.removed"
)

// Event describes one change to the library.
type Event struct {
	Type  EventType         `json:"type"`
	Asset domain.MediaAsset `json:"asset"`
	At    time.Time         `json:"at"`
}

// Notifier is told about every change. Implementations must not block for
// long; they are called outside the library lock.
type Notifier interface {
	Notify(ctx context.Context, evt Event)
}

// Filter narrows List. Kind is "", "all", "image" or "video"; Query
// matches asset names case-insensitively.
type Filter struct {
	Kind  string
	Query string
}

// Counts summarizes the library by kind.
type Counts struct {
	Total  int `json:"total"`
	Images int `json:"images"`
	Videos int `json:"videos"`
}

// Library is the process-wide, in-memory asset library. Assets are kept in
// insertion order and listed most recent first. An id is never reused, even
// after its asset was removed.
type Library struct {
	mu       sync.RWMutex
	assets   []domain.MediaAsset
	index    map[string]int
	issued   map[string]struct{}
	notifier Notifier
	now      func() time.Time
}

// Option configures a Library.
type Option func(*Library)

// WithNotifier attaches a change notifier.
func WithNotifier(n Notifier) Option {
	return func(l *Library) { l.notifier = n }
}

func New(opts ...Option) *Library {
	l := &Library{
		index:  make(map[string]int),
		issued: make(map[string]struct{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stores a new asset. A missing id or creation time is filled in.
func (l *Library) Append(ctx context.Context, asset domain.MediaAsset) (domain.MediaAsset, error) {
	if asset.Kind != domain.AssetKindImage && asset.Kind != domain.AssetKindVideo {
		return domain.MediaAsset{}, fmt.Errorf("%w: asset kind %q", domain.ErrInvalidInput, asset.Kind)
	}
	if strings.TrimSpace(asset.URL) == "" {
		return domain.MediaAsset{}, fmt.Errorf("%w: asset url required", domain.ErrInvalidInput)
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = l.now()
	}

	l.mu.Lock()
	if _, used := l.issued[asset.ID]; used {
		l.mu.Unlock()
		return domain.MediaAsset{}, fmt.Errorf("%w: duplicate asset id %s", domain.ErrInvalidInput, asset.ID)
	}
	l.issued[asset.ID] = struct{}{}
	l.index[asset.ID] = len(l.assets)
	l.assets = append(l.assets, asset)
	counts := l.countsLocked()
	l.mu.Unlock()

	observeCounts(counts)
	l.notify(ctx, EventAssetAdded, asset)
	return asset, nil
}

// Remove deletes an asset and reports whether it existed.
func (l *Library) Remove(ctx context.Context, id string) bool {
	l.mu.Lock()
	pos, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return false
	}
	removed := l.assets[pos]
	l.assets = append(l.assets[:pos], l.assets[pos+1:]...)
	delete(l.index, id)
	for i := pos; i < len(l.assets); i++ {
		l.index[l.assets[i].ID] = i
	}
	counts := l.countsLocked()
	l.mu.Unlock()

	observeCounts(counts)
	l.notify(ctx, EventAssetRemoved, removed)
	return true
}

// Get looks up one asset.
func (l *Library) Get(id string) (domain.MediaAsset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.index[id]
	if !ok {
		return domain.MediaAsset{}, false
	}
	return l.assets[pos], true
}

// List returns the matching assets, most recently appended first.
func (l *Library) List(f Filter) []domain.MediaAsset {
	kind := strings.ToLower(strings.TrimSpace(f.Kind))
	query := strings.ToLower(strings.TrimSpace(f.Query))

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.MediaAsset, 0, len(l.assets))
	for i := len(l.assets) - 1; i >= 0; i-- {
		asset := l.assets[i]
		if kind != "" && kind != "all" && string(asset.Kind) != kind {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(asset.Name), query) {
			continue
		}
		out = append(out, asset)
	}
	return out
}

// Counts returns totals per kind.
func (l *Library) Counts() Counts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.countsLocked()
}

func (l *Library) countsLocked() Counts {
	c := Counts{Total: len(l.assets)}
	for _, asset := range l.assets {
		switch asset.Kind {
		case domain.AssetKindImage:
			c.Images++
		case domain.AssetKindVideo:
			c.Videos++
		}
	}
	return c
}

func (l *Library) notify(ctx context.Context, typ EventType, asset domain.MediaAsset) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(ctx, Event{Type: typ, Asset: asset, At: l.now()})
}
