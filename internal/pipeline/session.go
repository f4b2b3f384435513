package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
)

// ErrOperationFailed is returned by Run when the external call of a stage
// fails. The stage records a failure outcome and the working asset is left
// untouched.
var ErrOperationFailed = fmt.Errorf("%w: operation failed", domain.ErrProviderFailure)

// VideoRequest seeds a clip with either SourceImage or Token.
type VideoRequest struct {
	Prompt      string
	AspectRatio domain.AspectRatio
	SourceImage string
	Token       string
}

// VideoResult is a finished clip and its continuation token.
type VideoResult struct {
	Locator string
	Token   string
}

// Generator is the external generation service the stages call.
type Generator interface {
	Caption(ctx context.Context, topic string, kind domain.ContentType) (string, error)
	GenerateImage(ctx context.Context, prompt string, size domain.ImageSize, aspect domain.AspectRatio) (string, error)
	EditImage(ctx context.Context, source, instruction string) (string, error)
	GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error)
	GenerateSpeech(ctx context.Context, text string) ([]byte, error)
}

// AssetSink receives every successfully generated asset. The pipeline only
// writes to it.
type AssetSink interface {
	Append(ctx context.Context, asset domain.MediaAsset) (domain.MediaAsset, error)
}

// PostSink receives published posts.
type PostSink interface {
	Publish(ctx context.Context, post domain.Post) (domain.Post, error)
}

// Result is what a finished operation produced.
type Result struct {
	Op      Op                 `json:"op"`
	Caption string             `json:"caption,omitempty"`
	Asset   *domain.MediaAsset `json:"asset,omitempty"`
	Post    *domain.Post       `json:"post,omitempty"`
	Audio   []byte             `json:"-"`
	Working WorkingAsset       `json:"working"`
}

// StageView is the UI projection of a stage.
type StageView struct {
	Status domain.StageStatus `json:"status"`
	StageState
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID        string              `json:"id"`
	Draft     Draft               `json:"draft"`
	Working   WorkingAsset        `json:"working"`
	Stages    map[Stage]StageView `json:"stages"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Session is one composer's pipeline state. All state is guarded by mu;
// external calls run outside the lock and commit under it when they return.
type Session struct {
	id       string
	gen      Generator
	assets   AssetSink
	posts    PostSink
	activity ActivityRecorder
	broker   *Broker
	logger   infra.Logger
	now      func() time.Time
	wg       sync.WaitGroup
	inflight *sync.WaitGroup

	mu        sync.Mutex
	draft     Draft
	working   WorkingAsset
	stages    map[Stage]*StageState
	createdAt time.Time
	updatedAt time.Time
}

func newSession(id string, deps Dependencies, inflight *sync.WaitGroup, logger infra.Logger, now func() time.Time) *Session {
	stages := make(map[Stage]*StageState, len(Stages))
	for _, stage := range Stages {
		stages[stage] = newStageState()
	}
	created := now()
	return &Session{
		id:        id,
		gen:       deps.Generator,
		assets:    deps.Assets,
		posts:     deps.Posts,
		activity:  deps.Activity,
		inflight:  inflight,
		broker:    NewBroker(),
		logger:    logger.With().Str("session_id", id).Logger(),
		now:       now,
		draft:     DefaultDraft(),
		working:   NoAsset(),
		stages:    stages,
		createdAt: created,
		updatedAt: created,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events returns the session's event broker.
func (s *Session) Events() *Broker { return s.broker }

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	views := make(map[Stage]StageView, len(s.stages))
	for stage, state := range s.stages {
		views[stage] = StageView{Status: state.Status(), StageState: *state}
	}
	return Snapshot{
		ID:        s.id,
		Draft:     s.draft.clone(),
		Working:   s.working,
		Stages:    views,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// Working returns the current working asset.
func (s *Session) Working() WorkingAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working
}

// Draft returns a copy of the draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.clone()
}

// UpdateDraft applies a patch. Invalid patches leave the draft unchanged.
func (s *Session) UpdateDraft(p DraftPatch) (Draft, error) {
	s.mu.Lock()
	next, err := p.apply(s.draft)
	if err != nil {
		s.mu.Unlock()
		return Draft{}, err
	}
	s.draft = next
	s.updatedAt = s.now()
	out := s.draft.clone()
	s.publish(Event{Type: EventDraftChanged, Draft: &out})
	s.mu.Unlock()

	return out, nil
}

// Select stages a library asset as the working asset. An image replaces any
// working video and token; a video replaces the image and carries no token,
// since a library entry cannot restore one.
func (s *Session) Select(asset domain.MediaAsset) (WorkingAsset, error) {
	var next WorkingAsset
	switch asset.Kind {
	case domain.AssetKindImage:
		next = ImageAsset(asset.URL)
	case domain.AssetKindVideo:
		next = VideoAsset(asset.URL, "", "")
	default:
		return WorkingAsset{}, fmt.Errorf("%w: asset kind %q", domain.ErrInvalidInput, asset.Kind)
	}
	return s.setWorking(next, "selected library asset"), nil
}

// Upload stages a user supplied picture, as a data URI, as the working image.
func (s *Session) Upload(dataURI string) (WorkingAsset, error) {
	if dataURI == "" {
		return WorkingAsset{}, fmt.Errorf("%w: image data required", domain.ErrInvalidInput)
	}
	return s.setWorking(ImageAsset(dataURI), "uploaded image"), nil
}

// Clear resets the working asset, dropping both tracks and the token.
func (s *Session) Clear() WorkingAsset {
	return s.setWorking(NoAsset(), "cleared working asset")
}

func (s *Session) setWorking(next WorkingAsset, msg string) WorkingAsset {
	s.mu.Lock()
	s.working = next
	s.updatedAt = s.now()
	s.publish(Event{Type: EventWorkingChanged, Working: &next})
	s.mu.Unlock()

	s.logger.Debug().Str("working", string(next.Kind())).Msg(msg)
	return next
}

// Run executes op synchronously. Rejections (ErrStageBusy, ErrMissingInput)
// happen before any external call and change nothing.
func (s *Session) Run(ctx context.Context, op Op) (*Result, error) {
	return s.RunWithDraft(ctx, op, DraftPatch{})
}

// RunWithDraft applies patch and runs op. The patch is committed only when
// the stage accepts the operation; a rejected call leaves the draft as it
// was.
func (s *Session) RunWithDraft(ctx context.Context, op Op, patch DraftPatch) (*Result, error) {
	j, err := s.prepare(op, patch)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, j)
}

// Submit validates and acquires the stage synchronously and runs the
// operation in the background. The outcome is reported through events.
func (s *Session) Submit(ctx context.Context, op Op) error {
	return s.SubmitWithDraft(ctx, op, DraftPatch{})
}

// SubmitWithDraft is Submit with a draft patch committed on acceptance.
func (s *Session) SubmitWithDraft(ctx context.Context, op Op, patch DraftPatch) error {
	j, err := s.prepare(op, patch)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	if s.inflight != nil {
		s.inflight.Add(1)
	}
	go func() {
		defer func() {
			if s.inflight != nil {
				s.inflight.Done()
			}
			s.wg.Done()
		}()
		if _, err := s.execute(ctx, j); err != nil && !errors.Is(err, ErrOperationFailed) {
			s.logger.Error().Err(err).Str("op", string(op)).Msg("background operation failed")
		}
	}()
	return nil
}

// Wait blocks until every submitted operation has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) close() {
	s.broker.Close()
}

// publish stamps and broadcasts evt. Callers hold mu so events are seen in
// the order the state changed.
func (s *Session) publish(evt Event) {
	evt.SessionID = s.id
	if evt.At.IsZero() {
		evt.At = s.now()
	}
	s.broker.Publish(evt)
}
