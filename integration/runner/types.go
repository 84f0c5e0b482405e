package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
)

// Step actions
const (
	ActionAdvance  = "advance"
	ActionWait     = "wait"
	ActionEvent    = "event"
	ActionComplete = "complete"
	ActionReset    = "reset"
)

// HiddenObjective marks an objective that must not be on the player's list
const HiddenObjective = "hidden"

// TestSuite defines a complete campaign script
// Can either be a regular script with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	Level int        `json:"level,omitempty"` // Used for regular tests
	Steps []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one host action and its expected outcome
type TestStep struct {
	Name          string         `json:"name,omitempty"`
	Action        string         `json:"action"`
	Hours         int            `json:"hours,omitempty"`
	Millis        int64          `json:"millis,omitempty"`
	Event         *mission.Event `json:"event,omitempty"`
	NarrativeID   string         `json:"narrative_id,omitempty"`
	NarrativeKind narrative.Kind `json:"narrative_kind,omitempty"`
	Expectations  Expectations   `json:"expect"`
}

// Expectations defines what to check after a step has been applied
type Expectations struct {
	Level    *int  `json:"level,omitempty"`
	GameHour *int  `json:"game_hour,omitempty"`
	Ended    *bool `json:"ended,omitempty"`
	// Objective id to state; "hidden" requires the objective to be off the player's list
	Objectives map[string]string `json:"objectives,omitempty"`
	// Entries produced by the step as "kind:id"; "game_over:" matches an entry without id
	NarrativeContains    []string `json:"narrative_contains,omitempty"`
	NarrativeNotContains []string `json:"narrative_not_contains,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
	RequestID string
	Narrative []narrative.Entry
	IsReset   bool // True if this was a reset step
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job        TestJob
	Results    []TestResult
	Error      error
	Duration   time.Duration
	CampaignID uuid.UUID // ID of the campaign used for this test
}
