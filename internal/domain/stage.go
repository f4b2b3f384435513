package domain

// StageStatus is the UI-facing status of a pipeline stage.
type StageStatus string

const (
	StageStatusIdle    StageStatus = "idle"
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusError   StageStatus = "error"
)
