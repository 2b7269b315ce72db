package domain

// ProgressStatus is the backend's view of a long-running chat operation
type ProgressStatus string

const (
	// ProgressNotFound is a sentinel meaning no progress record exists for
	// the session. It must never be surfaced as visible progress.
	ProgressNotFound   ProgressStatus = "not_found"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressError      ProgressStatus = "error"

	// Older backends emit these spellings; treated as synonyms
	progressProcessing ProgressStatus = "processing"
	progressFailed     ProgressStatus = "failed"
)

// Normalize maps legacy status spellings onto the canonical set
func (s ProgressStatus) Normalize() ProgressStatus {
	switch s {
	case progressProcessing:
		return ProgressInProgress
	case progressFailed:
		return ProgressError
	default:
		return s
	}
}

// Terminal reports whether the status is completed or error. The poller does
// not auto-stop on terminal status; stopping is the caller's responsibility.
func (s ProgressStatus) Terminal() bool {
	n := s.Normalize()
	return n == ProgressCompleted || n == ProgressError
}

// ProgressStep is one completed step of a backend operation
type ProgressStep struct {
	Step      string `json:"step"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Progress describes the current state of a long-running backend task
type Progress struct {
	Status        ProgressStatus `json:"status"`
	CurrentStep   string         `json:"current_step,omitempty"`
	Iteration     int            `json:"iteration,omitempty"`
	MaxIterations int            `json:"max_iterations,omitempty"`
	Steps         []ProgressStep `json:"steps,omitempty"`
	Error         string         `json:"error,omitempty"`
}
