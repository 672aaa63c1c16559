package render

import (
	"strings"
	"time"

	"reelsmith/internal/ledger"
	"reelsmith/internal/storyboard"
)

// Status is the canonical render job state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRendering Status = "rendering"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is one render request and its latest known state.
type Job struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"external_id,omitempty"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	VideoURL    string     `json:"video_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (j Job) clone() Job {
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		j.CompletedAt = &t
	}
	return j
}

// Bundle is everything the compositor needs to render one video.
type Bundle struct {
	JobID         string
	Title         string
	Scenes        []storyboard.Scene
	Soundtrack    ledger.SoundtrackContent
	TotalDuration float64
}

// ProviderStatus is the raw job state reported by a compositor. Progress is
// a percentage, or negative when the provider does not report one.
type ProviderStatus struct {
	State    string
	Progress float64
	URL      string
	Error    string
}

// StateMapper maps a provider state onto the canonical lifecycle. ok is
// false for states the mapper does not recognise.
type StateMapper func(state string) (status Status, ok bool)

// DefaultStateMapper understands the common compositor vocabularies.
func DefaultStateMapper(state string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "queued", "submitted", "pending", "accepted":
		return StatusPending, true
	case "fetching", "preprocessing", "rendering", "saving", "processing", "running":
		return StatusRendering, true
	case "done", "succeeded", "completed", "complete", "finished":
		return StatusCompleted, true
	case "failed", "error", "cancelled", "canceled":
		return StatusError, true
	default:
		return StatusRendering, false
	}
}
