package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
	"omniscore/internal/library"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []string

	caption    string
	captionErr error
	image      string
	imageErr   error
	imageGate  chan struct{}
	edited     string
	editErr    error
	video      *VideoResult
	videoErr   error
	speech     []byte
	speechErr  error

	lastImagePrompt string
	lastEditSource  string
	lastEditText    string
	lastVideo       VideoRequest
}

func (f *fakeGenerator) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGenerator) Caption(_ context.Context, topic string, kind domain.ContentType) (string, error) {
	f.record("caption")
	return f.caption, f.captionErr
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string, size domain.ImageSize, aspect domain.AspectRatio) (string, error) {
	f.record("image")
	if f.imageGate != nil {
		select {
		case <-f.imageGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	f.lastImagePrompt = prompt
	f.mu.Unlock()
	return f.image, f.imageErr
}

func (f *fakeGenerator) EditImage(_ context.Context, source, instruction string) (string, error) {
	f.record("edit")
	f.lastEditSource, f.lastEditText = source, instruction
	return f.edited, f.editErr
}

func (f *fakeGenerator) GenerateVideo(_ context.Context, req VideoRequest) (*VideoResult, error) {
	f.record("video")
	f.lastVideo = req
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.video, nil
}

func (f *fakeGenerator) GenerateSpeech(_ context.Context, text string) ([]byte, error) {
	f.record("speech")
	return f.speech, f.speechErr
}

type recordingPosts struct {
	posts []domain.Post
	err   error
}

func (r *recordingPosts) Publish(_ context.Context, p domain.Post) (domain.Post, error) {
	if r.err != nil {
		return domain.Post{}, r.err
	}
	r.posts = append(r.posts, p)
	return p, nil
}

type runRecord struct {
	op string
	ok bool
}

type recordingActivity struct {
	mu   sync.Mutex
	runs []runRecord
}

func (r *recordingActivity) RecordRun(op string, ok bool, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, runRecord{op: op, ok: ok})
}

type fixture struct {
	gen      *fakeGenerator
	lib      *library.Library
	posts    *recordingPosts
	activity *recordingActivity
	manager  *Manager
	session  *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gen := &fakeGenerator{
		caption: "Sunsets hit different 🌅 #beach",
		image:   "data:image/png;base64,aW1n",
		edited:  "data:image/png;base64,ZWRpdGVk",
		video:   &VideoResult{Locator: "http://localhost/static/videos/a.mp4", Token: `{"uri":"a"}`},
		speech:  []byte{1, 0, 2, 0},
	}
	lib := library.New()
	posts := &recordingPosts{}
	activity := &recordingActivity{}
	manager := NewManager(context.Background(), Dependencies{Generator: gen, Assets: lib, Posts: posts, Activity: activity}, infra.NopLogger())
	return &fixture{gen: gen, lib: lib, posts: posts, activity: activity, manager: manager, session: manager.Create()}
}

func (f *fixture) patch(t *testing.T, p DraftPatch) {
	t.Helper()
	_, err := f.session.UpdateDraft(p)
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func TestMissingInputNeverCallsOutOrChangesState(t *testing.T) {
	f := newFixture(t)
	before := f.session.Snapshot()

	for _, op := range []Op{
		OpCaption, OpImageGenerate, OpImageEdit, OpVideoAnimate,
		OpVideoExtend, OpVideoEdit, OpVideoTrim, OpSpeech, OpPublish,
	} {
		res, err := f.session.Run(context.Background(), op)
		assert.Nil(t, res, "op %s", op)
		assert.ErrorIs(t, err, domain.ErrMissingInput, "op %s", op)
		assert.ErrorIs(t, err, domain.ErrRejected, "op %s", op)
	}

	assert.Zero(t, f.gen.callCount())
	assert.Equal(t, before, f.session.Snapshot())
	assert.Zero(t, f.lib.Counts().Total)
}

func TestMissingInstructionRejectedEvenWithAsset(t *testing.T) {
	f := newFixture(t)
	f.session.Upload("data:image/png;base64,c3JjIA==")
	f.patch(t, DraftPatch{VideoEditPrompt: strPtr("   ")})

	_, err := f.session.Run(context.Background(), OpImageEdit)
	assert.ErrorIs(t, err, domain.ErrMissingInput)

	// a working image carries no token
	_, err = f.session.Run(context.Background(), OpVideoExtend)
	assert.ErrorIs(t, err, domain.ErrMissingInput)

	_, err = f.session.Select(domain.MediaAsset{Kind: domain.AssetKindVideo, URL: "http://cdn.test/v.mp4"})
	require.NoError(t, err)
	for _, op := range []Op{OpVideoExtend, OpVideoEdit, OpVideoTrim, OpImageEdit, OpVideoAnimate} {
		_, err = f.session.Run(context.Background(), op)
		assert.ErrorIs(t, err, domain.ErrMissingInput, "op %s", op)
	}
	assert.Zero(t, f.gen.callCount())
}

func TestBusyStageRejectsReentry(t *testing.T) {
	f := newFixture(t)
	f.gen.imageGate = make(chan struct{})
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach")})

	require.NoError(t, f.session.Submit(context.Background(), OpImageGenerate))
	assert.Equal(t, domain.StageStatusRunning, f.session.Snapshot().Stages[StageImageGenerate].Status)

	_, err := f.session.Run(context.Background(), OpImageGenerate)
	assert.ErrorIs(t, err, domain.ErrStageBusy)
	assert.ErrorIs(t, f.session.Submit(context.Background(), OpImageGenerate), domain.ErrStageBusy)

	// other stages are independent
	res, err := f.session.Run(context.Background(), OpCaption)
	require.NoError(t, err)
	assert.Equal(t, f.gen.caption, res.Caption)

	close(f.gen.imageGate)
	f.session.Wait()

	snap := f.session.Snapshot()
	assert.Equal(t, domain.StageStatusSuccess, snap.Stages[StageImageGenerate].Status)
	assert.Equal(t, 1, f.lib.Counts().Images)

	_, err = f.session.Run(context.Background(), OpImageGenerate)
	require.NoError(t, err)
	assert.Equal(t, 2, f.lib.Counts().Images)
}

func TestGenerateImageAppendsAndSetsWorkingVisual(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, library.SeedDemo(context.Background(), f.lib))
	n := f.lib.Counts().Total
	f.session.Select(domain.MediaAsset{Kind: domain.AssetKindVideo, URL: "http://cdn.test/old.mp4"})
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach"), ImageSize: strPtr("1K"), ImageAspect: strPtr("1:1")})

	res, err := f.session.Run(context.Background(), OpImageGenerate)
	require.NoError(t, err)

	assert.Equal(t, n+1, f.lib.Counts().Total)
	working := f.session.Working()
	assert.Equal(t, WorkingImage, working.Kind())
	assert.Equal(t, f.gen.image, working.Visual())
	assert.Empty(t, working.VideoLocator())
	assert.Empty(t, working.Token())
	assert.Equal(t, "sunset beach", f.gen.lastImagePrompt)

	require.NotNil(t, res.Asset)
	newest := f.lib.List(library.Filter{})[0]
	assert.Equal(t, res.Asset.ID, newest.ID)
	assert.Equal(t, domain.AssetKindImage, newest.Kind)
	assert.True(t, strings.HasPrefix(newest.Name, "sunset beach-"), newest.Name)
	assert.True(t, strings.HasSuffix(newest.Name, ".png"), newest.Name)
	assert.Equal(t, "1K", newest.Size)
	assert.Equal(t, "1:1", newest.AspectRatio)
}

func TestGenerateImageNameUsesFirstFifteenCharacters(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Topic: strPtr("a very long topic about coffee")})

	res, err := f.session.Run(context.Background(), OpImageGenerate)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Asset.Name, "a very long top-"), res.Asset.Name)
}

func TestGenerateImageFailureKeepsPriorState(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach")})
	_, err := f.session.Run(context.Background(), OpImageGenerate)
	require.NoError(t, err)
	before := f.session.Working()
	count := f.lib.Counts().Total

	events, cancel := f.session.Events().Subscribe(16)
	defer cancel()

	f.gen.imageErr = errors.New("quota exceeded")
	res, err := f.session.Run(context.Background(), OpImageGenerate)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrOperationFailed)

	assert.Equal(t, before, f.session.Working())
	assert.Equal(t, count, f.lib.Counts().Total)
	assert.Equal(t, domain.StageStatusError, f.session.Snapshot().Stages[StageImageGenerate].Status)

	failed := drainUntil(t, events, EventStageFailed)
	assert.Equal(t, "Failed to generate image. Please ensure you've selected an API key.", failed.Notice)
}

func TestEditImageReplacesInPlace(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach")})
	_, err := f.session.Run(context.Background(), OpImageGenerate)
	require.NoError(t, err)
	count := f.lib.Counts().Total

	f.patch(t, DraftPatch{EditPrompt: strPtr("add retro filter")})
	_, err = f.session.Run(context.Background(), OpImageEdit)
	require.NoError(t, err)

	assert.Equal(t, f.gen.image, f.gen.lastEditSource)
	assert.Equal(t, "add retro filter", f.gen.lastEditText)
	assert.Equal(t, f.gen.edited, f.session.Working().Visual())
	assert.Equal(t, WorkingImage, f.session.Working().Kind())
	assert.Equal(t, count, f.lib.Counts().Total)
	assert.Empty(t, f.session.Draft().EditPrompt)
}

func TestEditImageFailureKeepsPrompt(t *testing.T) {
	f := newFixture(t)
	f.session.Upload("data:image/png;base64,c3Jj")
	f.patch(t, DraftPatch{EditPrompt: strPtr("add retro filter")})
	f.gen.editErr = errors.New("blocked")

	_, err := f.session.Run(context.Background(), OpImageEdit)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.Equal(t, "data:image/png;base64,c3Jj", f.session.Working().Visual())
	assert.Equal(t, "add retro filter", f.session.Draft().EditPrompt)
}

func TestAnimateUsesDefaultPromptAndKeepsVisual(t *testing.T) {
	f := newFixture(t)
	f.session.Upload("data:image/png;base64,c3Jj")
	count := f.lib.Counts().Total

	res, err := f.session.Run(context.Background(), OpVideoAnimate)
	require.NoError(t, err)

	assert.Equal(t, "Animate this scene dynamically", f.gen.lastVideo.Prompt)
	assert.Equal(t, "data:image/png;base64,c3Jj", f.gen.lastVideo.SourceImage)
	assert.Empty(t, f.gen.lastVideo.Token)
	assert.Equal(t, domain.VideoAspectWide, f.gen.lastVideo.AspectRatio)

	working := f.session.Working()
	assert.Equal(t, WorkingVideo, working.Kind())
	assert.Equal(t, f.gen.video.Locator, working.VideoLocator())
	assert.Equal(t, f.gen.video.Token, working.Token())
	assert.Equal(t, "data:image/png;base64,c3Jj", working.Visual())

	assert.Equal(t, count+1, f.lib.Counts().Total)
	assert.Equal(t, domain.AssetKindVideo, res.Asset.Kind)
	assert.True(t, strings.HasPrefix(res.Asset.Name, "VeoAnimation-"), res.Asset.Name)
	assert.Equal(t, "16:9", res.Asset.AspectRatio)
}

func TestEditImageAfterAnimateUpdatesStill(t *testing.T) {
	f := newFixture(t)
	f.session.Upload("data:image/png;base64,c3Jj")
	_, err := f.session.Run(context.Background(), OpVideoAnimate)
	require.NoError(t, err)

	f.patch(t, DraftPatch{EditPrompt: strPtr("brighter")})
	_, err = f.session.Run(context.Background(), OpImageEdit)
	require.NoError(t, err)

	working := f.session.Working()
	assert.Equal(t, WorkingVideo, working.Kind())
	assert.Equal(t, f.gen.edited, working.Visual())
	assert.Equal(t, f.gen.video.Token, working.Token())
}

func TestVideoOpsComposeInstructionAndReplaceToken(t *testing.T) {
	cases := []struct {
		op       Op
		prompt   string
		want     string
		namePref string
	}{
		{OpVideoExtend, "", "Extend this video by adding 7 seconds of consistent action: continue the scene", "VeoExtend-"},
		{OpVideoExtend, "the wave crashes", "Extend this video by adding 7 seconds of consistent action: the wave crashes", "VeoExtend-"},
		{OpVideoTrim, "keep the sunset", "Refocus this clip and trim it according to: keep the sunset", "VeoTrim-"},
		{OpVideoEdit, "make it night", "make it night", "VeoEdit-"},
	}
	for _, tc := range cases {
		t.Run(string(tc.op)+"/"+tc.prompt, func(t *testing.T) {
			f := newFixture(t)
			f.session.Upload("data:image/png;base64,c3Jj")
			_, err := f.session.Run(context.Background(), OpVideoAnimate)
			require.NoError(t, err)
			oldToken := f.session.Working().Token()
			count := f.lib.Counts().Videos

			f.gen.video = &VideoResult{Locator: "http://localhost/static/videos/b.mp4", Token: `{"uri":"b"}`}
			f.patch(t, DraftPatch{VideoEditPrompt: strPtr(tc.prompt)})
			res, err := f.session.Run(context.Background(), tc.op)
			require.NoError(t, err)

			assert.Equal(t, tc.want, f.gen.lastVideo.Prompt)
			assert.Equal(t, oldToken, f.gen.lastVideo.Token)
			assert.Empty(t, f.gen.lastVideo.SourceImage)

			working := f.session.Working()
			assert.Equal(t, `{"uri":"b"}`, working.Token())
			assert.NotEqual(t, oldToken, working.Token())
			assert.Equal(t, "http://localhost/static/videos/b.mp4", working.VideoLocator())
			assert.Equal(t, "data:image/png;base64,c3Jj", working.Visual())
			assert.Empty(t, f.session.Draft().VideoEditPrompt)

			assert.Equal(t, count+1, f.lib.Counts().Videos)
			assert.True(t, strings.HasPrefix(res.Asset.Name, tc.namePref), res.Asset.Name)
			assert.True(t, strings.HasSuffix(res.Asset.Name, ".mp4"), res.Asset.Name)
		})
	}
}

func TestVideoFailurePreservesChain(t *testing.T) {
	f := newFixture(t)
	f.session.Upload("data:image/png;base64,c3Jj")
	_, err := f.session.Run(context.Background(), OpVideoAnimate)
	require.NoError(t, err)
	before := f.session.Working()
	count := f.lib.Counts().Total

	events, cancel := f.session.Events().Subscribe(16)
	defer cancel()

	f.gen.videoErr = errors.New("operation returned no media")
	f.patch(t, DraftPatch{VideoEditPrompt: strPtr("shorter")})
	_, err = f.session.Run(context.Background(), OpVideoTrim)
	assert.ErrorIs(t, err, ErrOperationFailed)

	assert.Equal(t, before, f.session.Working())
	assert.Equal(t, count, f.lib.Counts().Total)
	assert.Equal(t, "shorter", f.session.Draft().VideoEditPrompt)
	failed := drainUntil(t, events, EventStageFailed)
	assert.Equal(t, "Failed to trim video.", failed.Notice)
	assert.Equal(t, StageVideoEdit, failed.Stage)
}

func TestSelectKeepsTracksExclusive(t *testing.T) {
	f := newFixture(t)
	f.session.Upload("data:image/png;base64,c3Jj")
	_, err := f.session.Run(context.Background(), OpVideoAnimate)
	require.NoError(t, err)
	require.NotEmpty(t, f.session.Working().Token())

	working, err := f.session.Select(domain.MediaAsset{Kind: domain.AssetKindImage, URL: "https://picsum.photos/seed/cyber/1200/800"})
	require.NoError(t, err)
	assert.Equal(t, WorkingImage, working.Kind())
	assert.Empty(t, working.VideoLocator())
	assert.Empty(t, working.Token())

	working, err = f.session.Select(domain.MediaAsset{Kind: domain.AssetKindVideo, URL: "http://cdn.test/v.mp4"})
	require.NoError(t, err)
	assert.Equal(t, WorkingVideo, working.Kind())
	assert.Empty(t, working.Visual())
	assert.Empty(t, working.Token())

	_, err = f.session.Select(domain.MediaAsset{Kind: "audio"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, WorkingNone, f.session.Clear().Kind())
	assert.Empty(t, f.session.Working().Visual())
}

func TestCaptionFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach"), Content: strPtr("old")})
	f.gen.captionErr = errors.New("503")

	events, cancel := f.session.Events().Subscribe(16)
	defer cancel()

	res, err := f.session.Run(context.Background(), OpCaption)
	require.NoError(t, err)
	assert.Equal(t, CaptionFallback, res.Caption)
	assert.Equal(t, CaptionFallback, f.session.Draft().Content)
	assert.Equal(t, domain.StageStatusError, f.session.Snapshot().Stages[StageCaption].Status)

	failed := drainUntil(t, events, EventStageFailed)
	assert.Empty(t, failed.Notice)
}

func TestCaptionSuccessReplacesContent(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach"), Content: strPtr("old")})

	_, err := f.session.Run(context.Background(), OpCaption)
	require.NoError(t, err)
	assert.Equal(t, f.gen.caption, f.session.Draft().Content)
	assert.Equal(t, domain.StageStatusSuccess, f.session.Snapshot().Stages[StageCaption].Status)
}

func TestSpeechReturnsAudioWithoutStoring(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Content: strPtr("Hello world")})

	res, err := f.session.Run(context.Background(), OpSpeech)
	require.NoError(t, err)
	assert.Equal(t, f.gen.speech, res.Audio)
	assert.Zero(t, f.lib.Counts().Total)

	f.gen.speechErr = errors.New("tts down")
	_, err = f.session.Run(context.Background(), OpSpeech)
	assert.ErrorIs(t, err, ErrOperationFailed)
}

func TestPublishBuildsPost(t *testing.T) {
	f := newFixture(t)
	scheduled := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	f.patch(t, DraftPatch{
		Title:       strPtr("Morning Run"),
		Content:     strPtr("Get moving"),
		ContentType: strPtr("reel"),
		Platforms:   &[]domain.Platform{domain.PlatformTikTok, domain.PlatformX},
		ScheduledAt: &scheduled,
	})

	res, err := f.session.Run(context.Background(), OpPublish)
	require.NoError(t, err)
	require.Len(t, f.posts.posts, 1)
	post := f.posts.posts[0]
	assert.Equal(t, res.Post.ID, post.ID)
	assert.Equal(t, domain.PlatformTikTok, post.Platform)
	assert.Equal(t, domain.ContentTypeReel, post.Type)
	assert.Zero(t, post.Engagement)
	assert.Zero(t, post.Rating)
	assert.Equal(t, "https://picsum.photos/seed/Morning%20Run/800/1200", post.ImageURL)
	require.NotNil(t, post.ScheduledAt)
	assert.True(t, scheduled.Equal(*post.ScheduledAt))

	f.session.Upload("data:image/png;base64,c3Jj")
	_, err = f.session.Run(context.Background(), OpPublish)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,c3Jj", f.posts.posts[1].ImageURL)
}

func TestPublishTextPostWithoutImage(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Title: strPtr("Hello"), Content: strPtr("World")})

	_, err := f.session.Run(context.Background(), OpPublish)
	require.NoError(t, err)
	assert.Empty(t, f.posts.posts[0].ImageURL)
	assert.Equal(t, domain.PlatformInstagram, f.posts.posts[0].Platform)
}

func TestEventsFollowStateChanges(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach")})
	events, cancel := f.session.Events().Subscribe(16)
	defer cancel()

	_, err := f.session.Run(context.Background(), OpImageGenerate)
	require.NoError(t, err)

	var got []EventType
	for i := 0; i < 4; i++ {
		select {
		case evt := <-events:
			assert.Equal(t, f.session.ID(), evt.SessionID)
			got = append(got, evt.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %v", got)
		}
	}
	assert.Equal(t, []EventType{EventStageStarted, EventWorkingChanged, EventAssetSaved, EventStageSucceeded}, got)
}

func TestUpdateDraftValidates(t *testing.T) {
	f := newFixture(t)
	before := f.session.Draft()

	for _, p := range []DraftPatch{
		{ImageSize: strPtr("8K")},
		{ImageAspect: strPtr("5:4")},
		{VideoAspect: strPtr("1:1")},
		{ContentType: strPtr("podcast")},
		{Platforms: &[]domain.Platform{"MySpace"}},
	} {
		_, err := f.session.UpdateDraft(p)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Equal(t, before, f.session.Draft())

	d, err := f.session.UpdateDraft(DraftPatch{
		ImageSize:   strPtr("4k"),
		ImageAspect: strPtr("21:9"),
		VideoAspect: strPtr("9:16"),
		Platforms:   &[]domain.Platform{domain.PlatformX, domain.PlatformX},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ImageSize4K, d.ImageSize)
	assert.Equal(t, domain.AspectRatio("21:9"), d.ImageAspect)
	assert.Equal(t, domain.VideoAspectTall, d.VideoAspect)
	assert.Equal(t, []domain.Platform{domain.PlatformX}, d.Platforms)
}

func TestManagerLifecycle(t *testing.T) {
	f := newFixture(t)
	got, err := f.manager.Get(f.session.ID())
	require.NoError(t, err)
	assert.Same(t, f.session, got)
	assert.Equal(t, 1, f.manager.Len())

	events, _ := f.session.Events().Subscribe(1)
	assert.True(t, f.manager.Delete(f.session.ID()))
	assert.False(t, f.manager.Delete(f.session.ID()))
	_, open := <-events
	assert.False(t, open)

	_, err = f.manager.Get(f.session.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunRejectsUnknownOp(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.Run(context.Background(), Op("dance"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	op, ok := ParseOp("video_trim")
	assert.True(t, ok)
	assert.Equal(t, StageVideoEdit, op.Stage())
}

func drainUntil(t *testing.T, events <-chan Event, typ EventType) Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case evt, ok := <-events:
			require.True(t, ok, "event stream closed before %s", typ)
			if evt.Type == typ {
				return evt
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestFinishedRunsAreRecorded(t *testing.T) {
	f := newFixture(t)
	f.patch(t, DraftPatch{Topic: strPtr("city lights")})

	_, err := f.session.Run(context.Background(), OpImageGenerate)
	require.NoError(t, err)

	f.gen.editErr = errors.New("boom")
	f.patch(t, DraftPatch{EditPrompt: strPtr("neon")})
	_, err = f.session.Run(context.Background(), OpImageEdit)
	require.ErrorIs(t, err, ErrOperationFailed)

	// rejected calls never reach the recorder
	_, err = f.session.Run(context.Background(), OpVideoExtend)
	require.ErrorIs(t, err, domain.ErrMissingInput)

	assert.Equal(t, []runRecord{{op: "image_generate", ok: true}, {op: "image_edit", ok: false}}, f.activity.runs)
}

func TestDraftPatchCommittedOnlyWhenAccepted(t *testing.T) {
	f := newFixture(t)
	before := f.session.Snapshot().Draft
	events, _ := f.session.Events().Subscribe(8)

	_, err := f.session.RunWithDraft(context.Background(), OpImageEdit, DraftPatch{
		EditPrompt: strPtr("add retro filter"),
		Topic:      strPtr("changed"),
	})
	assert.ErrorIs(t, err, domain.ErrMissingInput)
	assert.Equal(t, before, f.session.Snapshot().Draft)
	assert.Zero(t, len(events), "a rejected call publishes nothing")
	assert.Zero(t, f.gen.callCount())

	_, err = f.session.RunWithDraft(context.Background(), OpCaption, DraftPatch{ImageSize: strPtr("8K"), Topic: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, before, f.session.Snapshot().Draft)
	assert.Equal(t, domain.StageStatusIdle, f.session.Snapshot().Stages[StageCaption].Status)

	f.gen.imageGate = make(chan struct{})
	require.NoError(t, f.session.SubmitWithDraft(context.Background(), OpImageGenerate, DraftPatch{Topic: strPtr("sunset beach")}))
	assert.Equal(t, "sunset beach", f.session.Draft().Topic)

	err = f.session.SubmitWithDraft(context.Background(), OpImageGenerate, DraftPatch{Topic: strPtr("other")})
	assert.ErrorIs(t, err, domain.ErrStageBusy)
	assert.Equal(t, "sunset beach", f.session.Draft().Topic)

	close(f.gen.imageGate)
	f.session.Wait()

	res, err := f.session.RunWithDraft(context.Background(), OpCaption, DraftPatch{Topic: strPtr("sea")})
	require.NoError(t, err)
	assert.Equal(t, f.gen.caption, res.Caption)
	assert.Equal(t, "sea", f.session.Draft().Topic)
}

func TestManagerWaitCoversDeletedSessions(t *testing.T) {
	f := newFixture(t)
	f.gen.imageGate = make(chan struct{})
	f.patch(t, DraftPatch{Topic: strPtr("sunset beach")})

	require.NoError(t, f.session.Submit(context.Background(), OpImageGenerate))
	require.True(t, f.manager.Delete(f.session.ID()))

	done := make(chan struct{})
	go func() {
		f.manager.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while an operation was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.gen.imageGate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the operation finished")
	}
	assert.Equal(t, 1, f.lib.Counts().Images)
}

func TestManagerUsesLocator(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.manager.UsesLocator(""))
	assert.False(t, f.manager.UsesLocator(f.gen.video.Locator))

	_, err := f.session.Select(domain.MediaAsset{Kind: domain.AssetKindVideo, URL: f.gen.video.Locator})
	require.NoError(t, err)
	assert.True(t, f.manager.UsesLocator(f.gen.video.Locator))

	f.session.Clear()
	assert.False(t, f.manager.UsesLocator(f.gen.video.Locator))
}
