package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"omniscore/internal/domain"
)

const (
	// CaptionFallback replaces the draft content when captioning fails.
	CaptionFallback = "Error generating caption. Please try again."
	// DefaultAnimatePrompt is used when the video prompt is blank.
	DefaultAnimatePrompt = "Animate this scene dynamically"

	extendDirective = "Extend this video by adding 7 seconds of consistent action: "
	extendDefault   = "continue the scene"
	trimDirective   = "Refocus this clip and trim it according to: "

	imageNameRunes = 15
)

var (
	errEmptyMedia   = errors.New("empty result")
	errNoPostTarget = errors.New("post sink not configured")
)

// job is the input snapshot of one accepted invocation.
type job struct {
	op          Op
	stage       Stage
	draft       Draft
	visual      string
	token       string
	instruction string
	startedAt   time.Time
}

// prepare gates op on its stage phase and inputs, then marks the stage
// running. A rejected call changes nothing.
func (s *Session) prepare(op Op, patch DraftPatch) (*job, error) {
	stage := op.Stage()
	if stage == "" {
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidInput, op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.stages[stage]
	if state.Phase == PhaseRunning {
		stageRejectionsTotal.WithLabelValues(string(stage), "busy").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrStageBusy, stage)
	}

	draft := s.draft
	patched := patch != (DraftPatch{})
	if patched {
		next, err := patch.apply(s.draft)
		if err != nil {
			return nil, err
		}
		draft = next
	}

	j := &job{
		op:     op,
		stage:  stage,
		draft:  draft.clone(),
		visual: s.working.Visual(),
		token:  s.working.Token(),
	}
	if err := j.compose(); err != nil {
		stageRejectionsTotal.WithLabelValues(string(stage), "missing_input").Inc()
		return nil, err
	}

	j.startedAt = s.now()
	if patched {
		s.draft = draft
		out := draft.clone()
		s.publish(Event{Type: EventDraftChanged, Draft: &out})
	}
	state.start(op, j.startedAt)
	s.updatedAt = j.startedAt
	s.publish(Event{Type: EventStageStarted, Stage: stage, Op: op, Status: domain.StageStatusRunning})
	s.logger.Debug().Str("stage", string(stage)).Str("op", string(op)).Msg("stage started")
	return j, nil
}

// compose checks the inputs op needs and builds its instruction text.
func (j *job) compose() error {
	d := j.draft
	missing := func(what string) error {
		return fmt.Errorf("%w: %s requires %s", domain.ErrMissingInput, j.op, what)
	}

	switch j.op {
	case OpCaption:
		if strings.TrimSpace(d.Topic) == "" {
			return missing("a topic")
		}
	case OpImageGenerate:
		if strings.TrimSpace(d.Topic) == "" {
			return missing("a topic")
		}
		if _, ok := domain.ParseImageSize(string(d.ImageSize)); !ok {
			return missing("an image size tier")
		}
		if !domain.ValidImageAspect(d.ImageAspect) {
			return missing("an image aspect ratio")
		}
		j.instruction = d.Topic
	case OpImageEdit:
		if j.visual == "" {
			return missing("a working visual")
		}
		if strings.TrimSpace(d.EditPrompt) == "" {
			return missing("an edit instruction")
		}
		j.instruction = d.EditPrompt
	case OpVideoAnimate:
		if j.visual == "" {
			return missing("a working visual")
		}
		if !domain.ValidVideoAspect(d.VideoAspect) {
			return missing("a video aspect ratio")
		}
		j.instruction = strings.TrimSpace(d.VideoPrompt)
		if j.instruction == "" {
			j.instruction = DefaultAnimatePrompt
		}
	case OpVideoExtend, OpVideoEdit, OpVideoTrim:
		if j.token == "" {
			return missing("a continuation token")
		}
		if !domain.ValidVideoAspect(d.VideoAspect) {
			return missing("a video aspect ratio")
		}
		prompt := strings.TrimSpace(d.VideoEditPrompt)
		switch j.op {
		case OpVideoExtend:
			if prompt == "" {
				prompt = extendDefault
			}
			j.instruction = extendDirective + prompt
		case OpVideoTrim:
			if prompt == "" {
				return missing("a trim instruction")
			}
			j.instruction = trimDirective + prompt
		default:
			if prompt == "" {
				return missing("an edit instruction")
			}
			j.instruction = d.VideoEditPrompt
		}
	case OpSpeech:
		if strings.TrimSpace(d.Content) == "" {
			return missing("content")
		}
	case OpPublish:
		if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Content) == "" {
			return missing("a title and content")
		}
	}
	return nil
}

// execute performs the external call of an accepted job and commits the
// outcome. It always returns the stage to idle.
func (s *Session) execute(ctx context.Context, j *job) (*Result, error) {
	switch j.op {
	case OpCaption:
		return s.runCaption(ctx, j)
	case OpImageGenerate:
		return s.runImageGenerate(ctx, j)
	case OpImageEdit:
		return s.runImageEdit(ctx, j)
	case OpVideoAnimate, OpVideoExtend, OpVideoEdit, OpVideoTrim:
		return s.runVideo(ctx, j)
	case OpSpeech:
		return s.runSpeech(ctx, j)
	case OpPublish:
		return s.runPublish(ctx, j)
	}
	return nil, s.fail(j, "", fmt.Errorf("unsupported operation %q", j.op))
}

// runCaption never reports failure to the caller: the draft content is
// replaced with CaptionFallback and no notice is emitted.
func (s *Session) runCaption(ctx context.Context, j *job) (*Result, error) {
	text, err := s.gen.Caption(ctx, j.draft.Topic, j.draft.ContentType)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyMedia
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, errMsg := OutcomeSuccess, ""
	if err != nil {
		text = CaptionFallback
		outcome, errMsg = OutcomeFailure, err.Error()
		s.logger.Warn().Err(err).Str("stage", string(j.stage)).Msg("caption generation failed")
	}
	s.draft.Content = text
	draft := s.draft.clone()
	s.publish(Event{Type: EventDraftChanged, Draft: &draft})
	s.finishLocked(j, outcome, errMsg, "")

	return &Result{Op: j.op, Caption: text, Working: s.working}, nil
}

func (s *Session) runImageGenerate(ctx context.Context, j *job) (*Result, error) {
	data, err := s.gen.GenerateImage(ctx, j.instruction, j.draft.ImageSize, j.draft.ImageAspect)
	if err == nil && data == "" {
		err = errEmptyMedia
	}
	if err != nil {
		return nil, s.fail(j, "Failed to generate image. Please ensure you've selected an API key.", err)
	}

	asset := s.saveAsset(ctx, domain.MediaAsset{
		Name:        fmt.Sprintf("%s-%d.png", firstRunes(strings.TrimSpace(j.draft.Topic), imageNameRunes), s.now().UnixMilli()),
		Kind:        domain.AssetKindImage,
		URL:         data,
		Size:        string(j.draft.ImageSize),
		AspectRatio: string(j.draft.ImageAspect),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = ImageAsset(data)
	s.commitAssetLocked(asset)
	s.finishLocked(j, OutcomeSuccess, "", "")
	return &Result{Op: j.op, Asset: &asset, Working: s.working}, nil
}

// runImageEdit replaces the working visual in place and appends nothing.
func (s *Session) runImageEdit(ctx context.Context, j *job) (*Result, error) {
	data, err := s.gen.EditImage(ctx, j.visual, j.instruction)
	if err == nil && data == "" {
		err = errEmptyMedia
	}
	if err != nil {
		return nil, s.fail(j, "Failed to edit image.", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = s.working.withVisual(data)
	working := s.working
	s.publish(Event{Type: EventWorkingChanged, Working: &working})
	s.draft.EditPrompt = ""
	draft := s.draft.clone()
	s.publish(Event{Type: EventDraftChanged, Draft: &draft})
	s.finishLocked(j, OutcomeSuccess, "", "")
	return &Result{Op: j.op, Working: s.working}, nil
}

// runVideo serves animate (seeded by the working visual) and extend, edit
// and trim (seeded by the continuation token).
func (s *Session) runVideo(ctx context.Context, j *job) (*Result, error) {
	req := VideoRequest{Prompt: j.instruction, AspectRatio: j.draft.VideoAspect}
	name := fmt.Sprintf("VeoAnimation-%d.mp4", s.now().UnixMilli())
	notice := "Failed to animate image."
	if j.op == OpVideoAnimate {
		req.SourceImage = j.visual
	} else {
		action := j.op.videoAction()
		req.Token = j.token
		notice = fmt.Sprintf("Failed to %s video.", action)
	}

	out, err := s.gen.GenerateVideo(ctx, req)
	if err == nil && (out == nil || out.Locator == "") {
		err = errEmptyMedia
	}
	if err != nil {
		return nil, s.fail(j, notice, err)
	}
	if j.op != OpVideoAnimate {
		name = fmt.Sprintf("Veo%s-%d.mp4", cases.Title(language.English).String(j.op.videoAction()), s.now().UnixMilli())
	}

	asset := s.saveAsset(ctx, domain.MediaAsset{
		Name:        name,
		Kind:        domain.AssetKindVideo,
		URL:         out.Locator,
		AspectRatio: string(j.draft.VideoAspect),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	still := s.working.Visual()
	if still == "" && j.op == OpVideoAnimate {
		still = j.visual
	}
	s.working = VideoAsset(out.Locator, out.Token, still)
	if j.op != OpVideoAnimate {
		s.draft.VideoEditPrompt = ""
		draft := s.draft.clone()
		s.publish(Event{Type: EventDraftChanged, Draft: &draft})
	}
	s.commitAssetLocked(asset)
	s.finishLocked(j, OutcomeSuccess, "", "")
	return &Result{Op: j.op, Asset: &asset, Working: s.working}, nil
}

// runSpeech returns raw PCM to the caller; nothing is stored.
func (s *Session) runSpeech(ctx context.Context, j *job) (*Result, error) {
	audio, err := s.gen.GenerateSpeech(ctx, j.draft.Content)
	if err == nil && len(audio) == 0 {
		err = errEmptyMedia
	}
	if err != nil {
		return nil, s.fail(j, "Failed to generate speech.", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(j, OutcomeSuccess, "", "")
	return &Result{Op: j.op, Audio: audio, Working: s.working}, nil
}

func (s *Session) runPublish(ctx context.Context, j *job) (*Result, error) {
	if s.posts == nil {
		return nil, s.fail(j, "Failed to publish post.", errNoPostTarget)
	}
	d := j.draft
	platform := domain.PlatformInstagram
	if len(d.Platforms) > 0 {
		platform = d.Platforms[0]
	}
	imageURL := j.visual
	if imageURL == "" && d.ContentType != domain.ContentTypeText {
		imageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/1200", url.PathEscape(d.Title))
	}

	post, err := s.posts.Publish(ctx, domain.Post{
		ID:          uuid.NewString(),
		Type:        d.ContentType,
		Title:       d.Title,
		Content:     d.Content,
		Platform:    platform,
		PostedAt:    s.now(),
		ScheduledAt: d.ScheduledAt,
		ImageURL:    imageURL,
	})
	if err != nil {
		return nil, s.fail(j, "Failed to publish post.", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(Event{Type: EventPostPublished, Post: &post})
	s.finishLocked(j, OutcomeSuccess, "", "")
	return &Result{Op: j.op, Post: &post, Working: s.working}, nil
}

// saveAsset hands a new asset to the library. The library is append-only
// from the pipeline's point of view, so a failed append is only logged.
func (s *Session) saveAsset(ctx context.Context, asset domain.MediaAsset) domain.MediaAsset {
	asset.ID = uuid.NewString()
	asset.CreatedAt = s.now()
	if s.assets == nil {
		return asset
	}
	saved, err := s.assets.Append(ctx, asset)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", asset.ID).Msg("append asset to library failed")
		return asset
	}
	return saved
}

func (s *Session) commitAssetLocked(asset domain.MediaAsset) {
	working := s.working
	s.publish(Event{Type: EventWorkingChanged, Working: &working})
	s.publish(Event{Type: EventAssetSaved, Asset: &asset})
}

// fail records a failed run, emits the user notice and wraps cause.
func (s *Session) fail(j *job, notice string, cause error) error {
	s.mu.Lock()
	s.finishLocked(j, OutcomeFailure, cause.Error(), notice)
	s.mu.Unlock()

	s.logger.Warn().Err(cause).Str("stage", string(j.stage)).Str("op", string(j.op)).Msg("stage failed")
	return fmt.Errorf("%w: %s: %w", ErrOperationFailed, j.op, cause)
}

func (s *Session) finishLocked(j *job, outcome Outcome, errMsg, notice string) {
	at := s.now()
	state := s.stages[j.stage]
	state.finish(outcome, errMsg, at)
	s.updatedAt = at

	elapsed := at.Sub(j.startedAt).Seconds()
	stageDuration.WithLabelValues(string(j.stage), string(outcome)).Observe(elapsed)
	stageRunsTotal.WithLabelValues(string(j.stage), string(outcome)).Inc()
	if s.activity != nil {
		s.activity.RecordRun(string(j.op), outcome == OutcomeSuccess, at)
	}

	evt := Event{Type: EventStageSucceeded, Stage: j.stage, Op: j.op, Status: state.Status(), Notice: notice}
	if outcome == OutcomeFailure {
		evt.Type = EventStageFailed
	}
	s.publish(evt)

	if outcome == OutcomeSuccess {
		s.logger.Info().Str("stage", string(j.stage)).Str("op", string(j.op)).Float64("elapsed_s", elapsed).Msg("stage succeeded")
	}
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
