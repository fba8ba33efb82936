// Package models defines the records Janus shares between the CLI, the HTTP
// API and the run history stores.
//
// A RenderRun is one rendering of a maintenance plan: which operators and
// steps were selected, where the scripts went and what happened to each step.
// A LintReport is the result of checking a maintenance's documents before
// rendering.
package models

import "time"

// RunStatus represents the state of a render run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// OutcomeStatus represents what happened to one step of one operator.
type OutcomeStatus string

const (
	OutcomeWritten OutcomeStatus = "written"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Severity of a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Lint report statuses.
const (
	LintPassed = "passed"
	LintFailed = "failed"
)

// RenderRun records one rendering of a maintenance plan.
type RenderRun struct {
	ID            string        `json:"id" db:"id"`
	MaintenanceID string        `json:"maintenance_id" db:"maintenance_id"`
	Operators     []string      `json:"operators" db:"operators"`
	Steps         []int         `json:"steps,omitempty" db:"steps"`
	DistDir       string        `json:"dist_dir" db:"dist_dir"`
	Status        RunStatus     `json:"status" db:"status"`
	Written       int           `json:"written" db:"written"`
	Skipped       int           `json:"skipped" db:"skipped"`
	Failed        int           `json:"failed" db:"failed"`
	Published     []string      `json:"published,omitempty" db:"published"`
	Outcomes      []StepOutcome `json:"outcomes" db:"outcomes"`
	ErrorMessage  string        `json:"error_message,omitempty" db:"error_message"`
	StartedAt     time.Time     `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// StepOutcome is the result of one step for one operator.
type StepOutcome struct {
	Operator string        `json:"operator"`
	StepNo   int           `json:"step_no"`
	Step     string        `json:"step"`
	Filename string        `json:"filename"`
	Status   OutcomeStatus `json:"status"`
	SHA256   string        `json:"sha256,omitempty"`
	Size     int           `json:"size,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Tally counts the outcomes by status and derives the run status.
func (r *RenderRun) Tally() {
	r.Written, r.Skipped, r.Failed = 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case OutcomeWritten:
			r.Written++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeFailed:
			r.Failed++
		}
	}
	switch {
	case r.Failed == 0:
		r.Status = RunStatusCompleted
	case r.Failed == len(r.Outcomes):
		r.Status = RunStatusFailed
	default:
		r.Status = RunStatusPartial
	}
}

// Finding is a single lint rule violation.
type Finding struct {
	Rule        string   `json:"rule"`
	Severity    Severity `json:"severity"`
	Resource    string   `json:"resource"`
	Operator    string   `json:"operator,omitempty"`
	Description string   `json:"description"`
}

// LintReport is the result of running every lint rule over a maintenance.
type LintReport struct {
	MaintenanceID string    `json:"maintenance_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	Findings      []Finding `json:"findings"`
	Errors        int       `json:"errors"`
	Warnings      int       `json:"warnings"`
	Infos         int       `json:"infos"`
	Status        string    `json:"status"` // "passed", "failed"
}

// MaintenanceSummary describes a maintenance and its operators.
type MaintenanceSummary struct {
	ID        string            `json:"id"`
	Regions   []string          `json:"regions"`
	Operators []OperatorSummary `json:"operators"`
	Steps     int               `json:"steps"`
}

// OperatorSummary counts the resources an operator is responsible for.
type OperatorSummary struct {
	ID           string `json:"id"`
	Databases    int    `json:"databases"`
	ECSServices  int    `json:"ecs_services"`
	Deployments  int    `json:"deployments"`
	StatefulSets int    `json:"statefulsets"`
}
