package pipeline

import (
	"time"

	"omniscore/internal/domain"
)

// Stage is one independently gated pipeline operation kind.
type Stage string

const (
	StageCaption       Stage = "caption"
	StageImageGenerate Stage = "image_generate"
	StageImageEdit     Stage = "image_edit"
	StageVideoAnimate  Stage = "video_animate"
	// StageVideoEdit is shared by extend, edit and trim.
	StageVideoEdit Stage = "video_edit"
	StageSpeech    Stage = "speech"
	StagePublish   Stage = "publish"
)

// Stages lists every stage in composer order.
var Stages = []Stage{
	StageCaption,
	StageImageGenerate,
	StageImageEdit,
	StageVideoAnimate,
	StageVideoEdit,
	StageSpeech,
	StagePublish,
}

// Op is a user-invocable operation. Several video ops share one stage.
type Op string

const (
	OpCaption       Op = "caption"
	OpImageGenerate Op = "image_generate"
	OpImageEdit     Op = "image_edit"
	OpVideoAnimate  Op = "video_animate"
	OpVideoExtend   Op = "video_extend"
	OpVideoEdit     Op = "video_edit"
	OpVideoTrim     Op = "video_trim"
	OpSpeech        Op = "speech"
	OpPublish       Op = "publish"
)

var opStages = map[Op]Stage{
	OpCaption:       StageCaption,
	OpImageGenerate: StageImageGenerate,
	OpImageEdit:     StageImageEdit,
	OpVideoAnimate:  StageVideoAnimate,
	OpVideoExtend:   StageVideoEdit,
	OpVideoEdit:     StageVideoEdit,
	OpVideoTrim:     StageVideoEdit,
	OpSpeech:        StageSpeech,
	OpPublish:       StagePublish,
}

// ParseOp validates an operation name.
func ParseOp(s string) (Op, bool) {
	op := Op(s)
	_, ok := opStages[op]
	return op, ok
}

// Stage returns the stage that gates op.
func (o Op) Stage() Stage {
	return opStages[o]
}

// videoAction is the verb used in asset names and notices for video ops.
func (o Op) videoAction() string {
	switch o {
	case OpVideoExtend:
		return "extend"
	case OpVideoEdit:
		return "edit"
	case OpVideoTrim:
		return "trim"
	}
	return ""
}

// Phase is the in-flight state of a stage.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
)

// Outcome records how the last run of a stage ended.
type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// StageState is the state machine of one stage:
// Idle -> Running -> Idle, with the outcome of the finished run retained.
type StageState struct {
	Phase      Phase      `json:"phase"`
	Outcome    Outcome    `json:"outcome"`
	Op         Op         `json:"op,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func newStageState() *StageState {
	return &StageState{Phase: PhaseIdle, Outcome: OutcomeNone}
}

// Status derives the UI status.
func (s StageState) Status() domain.StageStatus {
	if s.Phase == PhaseRunning {
		return domain.StageStatusRunning
	}
	switch s.Outcome {
	case OutcomeSuccess:
		return domain.StageStatusSuccess
	case OutcomeFailure:
		return domain.StageStatusError
	}
	return domain.StageStatusIdle
}

func (s *StageState) start(op Op, at time.Time) bool {
	if s.Phase == PhaseRunning {
		return false
	}
	s.Phase = PhaseRunning
	s.Op = op
	s.Error = ""
	s.StartedAt = &at
	s.FinishedAt = nil
	return true
}

func (s *StageState) finish(outcome Outcome, errMsg string, at time.Time) {
	s.Phase = PhaseIdle
	s.Outcome = outcome
	s.Error = errMsg
	s.FinishedAt = &at
}
