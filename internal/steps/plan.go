package steps

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

// Entry is one step of a plan. Its position in the plan is its step number.
type Entry struct {
	Step string `json:"step" yaml:"step"`
	Zero bool   `json:"zero,omitempty" yaml:"zero,omitempty"`
}

// Plan is the ordered list of steps of a maintenance window.
type Plan struct {
	Entries []Entry `json:"steps" yaml:"steps"`
}

// DefaultPlan covers a full window: capture state, scale down, patch the
// databases, scale back up, restart and check again.
func DefaultPlan() Plan {
	return Plan{Entries: []Entry{
		{Step: "query-database-status"},
		{Step: "query-ecs-task-status"},
		{Step: "query-k8s-deployment-status"},
		{Step: "dump-pgstats"},
		{Step: "dump-mysqltablestatus"},
		{Step: "update-ecs-task-count", Zero: true},
		{Step: "change-k8s-deployment-replicas", Zero: true},
		{Step: "update-k8s-statefulset-replicas", Zero: true},
		{Step: "modify-database-engineversion"},
		{Step: "modify-database-classtype"},
		{Step: "query-database-status"},
		{Step: "update-k8s-statefulset-replicas"},
		{Step: "change-k8s-deployment-replicas"},
		{Step: "update-ecs-task-count"},
		{Step: "restart-k8s-deployment"},
		{Step: "restart-ecs-service"},
		{Step: "query-k8s-deployment-status"},
		{Step: "query-ecs-task-status"},
	}}
}

// LoadPlanFile reads a plan document. A missing file yields the default plan.
func LoadPlanFile(path string) (Plan, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPlan(), nil
	}
	if err != nil {
		return Plan{}, fmt.Errorf("steps: open plan: %w", err)
	}
	defer f.Close()
	return DecodePlan(f)
}

// DecodePlan decodes and validates a plan document of the form
//
//	steps:
//	  - step: update-ecs-task-count
//	    zero: true
func DecodePlan(r io.Reader) (Plan, error) {
	var p Plan
	if err := yaml.NewDecoder(r).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, &topology.SchemaError{Path: "plan", Err: err}
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate checks that every entry names a registered kind and only zeroable
// kinds run in zero mode.
func (p Plan) Validate() error {
	if len(p.Entries) == 0 {
		return &topology.SchemaError{Path: "plan", Field: "steps", Reason: "empty"}
	}
	for i, e := range p.Entries {
		path := fmt.Sprintf("plan.steps[%d]", i)
		d, ok := Lookup(e.Step)
		if !ok {
			return &topology.SchemaError{Path: path, Field: e.Step, Reason: "unknown step kind"}
		}
		if e.Zero && !d.Zeroable {
			return &topology.SchemaError{Path: path, Field: e.Step, Reason: "zero mode not supported by"}
		}
	}
	return nil
}

// Len returns the number of steps in the plan.
func (p Plan) Len() int { return len(p.Entries) }

// Jobs builds the jobs of op for the given step numbers, or for every step
// when numbers is empty. Jobs come back in the order of numbers.
func (p Plan) Jobs(op *operator.Operator, distDir string, numbers []int) ([]Job, error) {
	if len(numbers) == 0 {
		numbers = make([]int, len(p.Entries))
		for i := range numbers {
			numbers[i] = i
		}
	}
	jobs := make([]Job, 0, len(numbers))
	for _, no := range numbers {
		if no < 0 || no >= len(p.Entries) {
			return nil, &topology.NotFoundError{Kind: "step", Name: fmt.Sprint(no), Parent: "plan"}
		}
		e := p.Entries[no]
		step, err := New(e.Step, e.Zero)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{No: no, Step: step, Operator: op, DistDir: distDir})
	}
	return jobs, nil
}
