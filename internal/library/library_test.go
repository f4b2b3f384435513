package library

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniscore/internal/domain"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func asset(name string, kind domain.AssetKind) domain.MediaAsset {
	return domain.MediaAsset{Name: name, Kind: kind, URL: "https://cdn.test/" + name}
}

func TestAppendAssignsIdentityAndListsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	lib := New()

	first, err := lib.Append(ctx, asset("sunset-1.png", domain.AssetKindImage))
	require.NoError(t, err)
	second, err := lib.Append(ctx, asset("VeoAnimation-2.mp4", domain.AssetKindVideo))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	list := lib.List(Filter{})
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestAppendValidates(t *testing.T) {
	ctx := context.Background()
	lib := New()

	_, err := lib.Append(ctx, domain.MediaAsset{Name: "x", Kind: "audio", URL: "u"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = lib.Append(ctx, domain.MediaAsset{Name: "x", Kind: domain.AssetKindImage})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	a := asset("dup.png", domain.AssetKindImage)
	a.ID = "fixed"
	_, err = lib.Append(ctx, a)
	require.NoError(t, err)
	_, err = lib.Append(ctx, a)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, lib.Counts().Total)
}

func TestRemovedIDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	lib := New()

	a := asset("once.png", domain.AssetKindImage)
	a.ID = "asset-1"
	_, err := lib.Append(ctx, a)
	require.NoError(t, err)
	require.True(t, lib.Remove(ctx, a.ID))

	_, err = lib.Append(ctx, a)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, lib.Counts().Total)
}

func TestListFiltersByKindAndName(t *testing.T) {
	ctx := context.Background()
	lib := New()
	for _, a := range []domain.MediaAsset{
		asset("Beach Sunset.png", domain.AssetKindImage),
		asset("VeoAnimation-1.mp4", domain.AssetKindVideo),
		asset("sunset-clip.mp4", domain.AssetKindVideo),
	} {
		_, err := lib.Append(ctx, a)
		require.NoError(t, err)
	}

	cases := []struct {
		filter Filter
		want   []string
	}{
		{Filter{Kind: "all"}, []string{"sunset-clip.mp4", "VeoAnimation-1.mp4", "Beach Sunset.png"}},
		{Filter{Kind: "image"}, []string{"Beach Sunset.png"}},
		{Filter{Kind: "VIDEO"}, []string{"sunset-clip.mp4", "VeoAnimation-1.mp4"}},
		{Filter{Query: "SUNSET"}, []string{"sunset-clip.mp4", "Beach Sunset.png"}},
		{Filter{Kind: "image", Query: "clip"}, []string{}},
	}
	for _, tc := range cases {
		got := []string{}
		for _, a := range lib.List(tc.filter) {
			got = append(got, a.Name)
		}
		assert.Equal(t, tc.want, got, "filter %+v", tc.filter)
	}
}

func TestRemoveAndNotify(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	lib := New(WithNotifier(notifier))

	a, err := lib.Append(ctx, asset("a.png", domain.AssetKindImage))
	require.NoError(t, err)
	b, err := lib.Append(ctx, asset("b.mp4", domain.AssetKindVideo))
	require.NoError(t, err)

	assert.True(t, lib.Remove(ctx, a.ID))
	assert.False(t, lib.Remove(ctx, a.ID))

	_, ok := lib.Get(a.ID)
	assert.False(t, ok)
	got, ok := lib.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, "b.mp4", got.Name)

	assert.Equal(t, Counts{Total: 1, Videos: 1}, lib.Counts())

	require.Len(t, notifier.events, 3)
	assert.Equal(t, EventAssetAdded, notifier.events[0].Type)
	assert.Equal(t, EventAssetRemoved, notifier.events[2].Type)
	assert.Equal(t, a.ID, notifier.events[2].Asset.ID)
}

func TestSeedDemo(t *testing.T) {
	lib := New()
	require.NoError(t, SeedDemo(context.Background(), lib))

	list := lib.List(Filter{})
	require.Len(t, list, 2)
	assert.Equal(t, "Cyberpunk Cityscape.png", list[0].Name)
	assert.Equal(t, "3:2", list[0].AspectRatio)
	assert.Equal(t, Counts{Total: 2, Images: 2}, lib.Counts())
}

func TestConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	lib := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = lib.Append(ctx, asset("x.png", domain.AssetKindImage))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, lib.Counts().Total)
	assert.Len(t, lib.List(Filter{}), 50)
}
