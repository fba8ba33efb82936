// Package lint checks a maintenance's topology and operators before scripts
// are rendered.
//
// Each rule inspects the loaded documents and reports findings with a
// severity. Errors fail the report (the CLI's validate command exits non-zero);
// warnings and infos are advisory. Rules never modify the topology.
package lint

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/logging"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

// Input is what rules look at.
type Input struct {
	Topology  *topology.Topology
	Operators []*operator.Operator
}

// Rule is a single named check.
type Rule struct {
	Name        string
	Description string
	Check       func(in *Input) []models.Finding
}

// Engine runs a set of rules.
type Engine struct {
	rules    []Rule
	disabled map[string]bool
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates an Engine with every built-in rule enabled.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		rules:    DefaultRules(),
		disabled: make(map[string]bool),
		logger:   logging.Named(logger, "lint"),
		now:      time.Now,
	}
}

// Rules returns the rules known to the engine.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Disable turns off rules by name. Unknown names are an error.
func (e *Engine) Disable(names ...string) error {
	for _, name := range names {
		found := false
		for _, r := range e.rules {
			if r.Name == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("lint: unknown rule %q", name)
		}
		e.disabled[name] = true
	}
	return nil
}

// Evaluate runs every enabled rule and returns the report. Findings are
// ordered by rule, then by the order resources appear in the documents.
func (e *Engine) Evaluate(ctx context.Context, maintenanceID string, in *Input) (*models.LintReport, error) {
	if in == nil || in.Topology == nil {
		return nil, fmt.Errorf("lint: topology is required")
	}

	report := &models.LintReport{
		MaintenanceID: maintenanceID,
		GeneratedAt:   e.now().UTC(),
		Findings:      make([]models.Finding, 0),
	}

	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.disabled[rule.Name] {
			continue
		}
		for _, f := range rule.Check(in) {
			f.Rule = rule.Name
			report.Findings = append(report.Findings, f)
			switch f.Severity {
			case models.SeverityError:
				report.Errors++
			case models.SeverityWarning:
				report.Warnings++
			default:
				report.Infos++
			}
		}
	}

	if report.Errors > 0 {
		report.Status = models.LintFailed
	} else {
		report.Status = models.LintPassed
	}

	e.logger.Info("lint evaluation complete",
		zap.String("maintenance", maintenanceID),
		zap.String("status", report.Status),
		zap.Int("errors", report.Errors),
		zap.Int("warnings", report.Warnings),
		zap.Int("infos", report.Infos))

	return report, nil
}
