package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"omniscore/internal/domain"
	"omniscore/internal/infra"
	"omniscore/internal/pipeline"
	"omniscore/internal/providers/speech"
)

// Status is the terminal state of a job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is a chain of operations run in one fresh session.
type Job struct {
	ID    string              `json:"id"`
	Draft pipeline.DraftPatch `json:"draft"`
	Ops   []string            `json:"ops"`
}

// Step reports one finished operation.
type Step struct {
	Index   int                   `json:"step"`
	Op      pipeline.Op           `json:"op"`
	Elapsed string                `json:"elapsed"`
	Caption string                `json:"caption,omitempty"`
	Asset   *domain.MediaAsset    `json:"asset,omitempty"`
	Post    *domain.Post          `json:"post,omitempty"`
	Audio   string                `json:"audio,omitempty"`
	Working pipeline.WorkingAsset `json:"working"`
}

// Result is what a job produced, up to the first failure.
type Result struct {
	JobID      string    `json:"job_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Status     Status    `json:"status"`
	Steps      []Step    `json:"steps"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// BlobWriter stores speech renders.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	URL(key string) string
}

// Options configures a Runner.
type Options struct {
	// Blobs receives speech as WAV files. Without it audio is dropped.
	Blobs BlobWriter
	// OnStep is called after each successful operation.
	OnStep func(Step)
	// KeepSessions leaves finished sessions in the manager.
	KeepSessions bool
}

// Runner executes jobs against a pipeline manager.
type Runner struct {
	sessions *pipeline.Manager
	opts     Options
	logger   infra.Logger
	now      func() time.Time
}

func NewRunner(sessions *pipeline.Manager, opts Options, logger infra.Logger) *Runner {
	return &Runner{
		sessions: sessions,
		opts:     opts,
		logger:   infra.Component(logger, "compose"),
		now:      time.Now,
	}
}

// ParseOps validates operation names, keeping their order.
func ParseOps(raw []string) ([]pipeline.Op, error) {
	ops := make([]pipeline.Op, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		op, ok := pipeline.ParseOp(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidInput, name)
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: at least one operation is required", domain.ErrInvalidInput)
	}
	return ops, nil
}

// Decode parses a queued job message.
func Decode(data []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("%w: decode job: %v", domain.ErrInvalidInput, err)
	}
	return job, nil
}

// Run executes the job's operations in order and stops at the first error.
func (r *Runner) Run(ctx context.Context, job Job) (res Result) {
	res = Result{JobID: job.ID, Status: StatusFailed, Steps: []Step{}}
	defer func() { res.FinishedAt = r.now().UTC() }()

	ops, err := ParseOps(job.Ops)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	session := r.sessions.Create()
	res.SessionID = session.ID()
	if !r.opts.KeepSessions {
		defer r.sessions.Delete(session.ID())
	}
	log := r.logger.With().Str("job_id", job.ID).Str("session_id", session.ID()).Logger()

	if _, err := session.UpdateDraft(job.Draft); err != nil {
		res.Error = err.Error()
		return res
	}

	for i, op := range ops {
		started := r.now()
		out, err := session.Run(ctx, op)
		if err != nil {
			log.Warn().Err(err).Str("op", string(op)).Int("step", i+1).Msg("chain stopped")
			res.Error = fmt.Sprintf("%s: %v", op, err)
			return res
		}
		step := Step{
			Index:   i + 1,
			Op:      op,
			Elapsed: r.now().Sub(started).Round(time.Millisecond).String(),
			Caption: out.Caption,
			Asset:   out.Asset,
			Post:    out.Post,
			Working: out.Working,
		}
		if op == pipeline.OpSpeech && r.opts.Blobs != nil {
			key := fmt.Sprintf("speech/%s-%d.wav", session.ID(), i+1)
			stored, err := r.opts.Blobs.Write(ctx, key, speech.EncodeWAV(out.Audio, speech.SampleRate))
			if err != nil {
				res.Error = fmt.Sprintf("%s: store audio: %v", op, err)
				return res
			}
			step.Audio = r.opts.Blobs.URL(stored)
		}
		res.Steps = append(res.Steps, step)
		if r.opts.OnStep != nil {
			r.opts.OnStep(step)
		}
	}

	res.Status = StatusSucceeded
	log.Info().Int("steps", len(res.Steps)).Msg("chain finished")
	return res
}

// Handle decodes a queued message and runs it.
func (r *Runner) Handle(ctx context.Context, data []byte) Result {
	job, err := Decode(data)
	if err != nil {
		return Result{Status: StatusFailed, Steps: []Step{}, Error: err.Error(), FinishedAt: r.now().UTC()}
	}
	return r.Run(ctx, job)
}
