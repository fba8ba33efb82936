// Package steps renders maintenance steps into executable shell scripts.
//
// A Step knows its kind name, an optional filename suffix, whether it applies
// to an operator and which commands it emits. A Job binds a step to a step
// number, an operator and an output directory, and owns the filename and file
// writing rules. Rendering is deterministic: commands follow the order of the
// operator's resource lists and never depend on map iteration.
package steps

import (
	"bufio"
	"errors"
	"io"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
)

// Header is written at the top of every script.
const Header = "#!/bin/bash\n\n"

// Suffixes used by steps that can either restore or zero a count.
const (
	SuffixResume = "RESUME"
	SuffixZero   = "ZERO"
)

// ErrNotEligible is returned by Job.Render when the step does not apply to the
// job's operator. WriteFile treats it as a skip, not a failure.
var ErrNotEligible = errors.New("steps: step not eligible for operator")

// Command is one logical command of a script. Most commands are a single
// line; some carry a preamble or a follow-up line.
type Command []string

// Step is a single kind of maintenance action.
type Step interface {
	// Name is the kind name used in filenames and plans.
	Name() string
	// Suffix is appended to the filename when non-empty.
	Suffix() string
	// Eligible reports whether the step has anything to do for op.
	Eligible(op *operator.Operator) bool
	// Commands returns the commands to emit for op, in output order.
	Commands(op *operator.Operator) []Command
	// Separator is written between consecutive commands, if non-empty.
	Separator() string
}

// base carries the static parts of a step.
type base struct {
	name   string
	suffix string
	sep    string
}

func (b base) Name() string      { return b.name }
func (b base) Suffix() string    { return b.suffix }
func (b base) Separator() string { return b.sep }

// zeroSuffix picks the suffix of a step that runs in resume or zero mode.
func zeroSuffix(zero bool) string {
	if zero {
		return SuffixZero
	}
	return SuffixResume
}

// writeScript writes the header and the commands of s for op to w.
func writeScript(w io.Writer, s Step, op *operator.Operator) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header); err != nil {
		return err
	}
	for i, cmd := range s.Commands(op) {
		if i > 0 && s.Separator() != "" {
			bw.WriteString(s.Separator())
			bw.WriteString("\n")
		}
		for _, line := range cmd {
			bw.WriteString(line)
			bw.WriteString("\n")
		}
	}
	return bw.Flush()
}
