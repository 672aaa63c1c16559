package production

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage is a position in the linear production workflow.
type Stage string

const (
	StageInput    Stage = "input"
	StageResearch Stage = "research"
	StageProposal Stage = "proposal"
	StageStudio   Stage = "studio"
	StageRender   Stage = "render"
	StageUpload   Stage = "upload"
)

var allStages = []Stage{
	StageInput,
	StageResearch,
	StageProposal,
	StageStudio,
	StageRender,
	StageUpload,
}

var titleCaser = cases.Title(language.English)

// Stages returns every stage in workflow order.
func Stages() []Stage {
	return append([]Stage(nil), allStages...)
}

// ParseStage converts user input into a Stage.
func ParseStage(value string) (Stage, error) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range allStages {
		if stage == normalized {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", value)
}

// Index returns the zero-based workflow position, or -1 for unknown stages.
func (s Stage) Index() int {
	for i, stage := range allStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the following stage. ok is false for the final stage.
func (s Stage) Next() (Stage, bool) {
	idx := s.Index()
	if idx < 0 || idx+1 >= len(allStages) {
		return "", false
	}
	return allStages[idx+1], true
}

// Before reports whether s comes earlier in the workflow than other.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

// Label returns a human-friendly stage name.
func (s Stage) Label() string {
	return titleCaser.String(string(s))
}
