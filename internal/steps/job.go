package steps

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
)

const (
	scriptExt  = "sh"
	scriptMode = 0755
	dirMode    = 0755
)

// Job is one step scheduled for one operator.
type Job struct {
	No       int
	Step     Step
	Operator *operator.Operator
	DistDir  string
}

// Output describes a script written to disk.
type Output struct {
	Path   string
	Size   int
	SHA256 string
}

// Filename returns "{operator}-{no}-{step}[-{suffix}].sh".
func (j Job) Filename() string {
	name := j.Operator.ID() + "-" + strconv.Itoa(j.No) + "-" + j.Step.Name()
	if s := j.Step.Suffix(); s != "" {
		name += "-" + s
	}
	return name + "." + scriptExt
}

// OutputPath is Filename inside DistDir.
func (j Job) OutputPath() string {
	return filepath.Join(j.DistDir, j.Filename())
}

// Eligible reports whether the step applies to the job's operator.
func (j Job) Eligible() bool {
	return j.Step.Eligible(j.Operator)
}

// Render writes the script to w without touching the filesystem.
func (j Job) Render(w io.Writer) error {
	if !j.Eligible() {
		return ErrNotEligible
	}
	if err := writeScript(w, j.Step, j.Operator); err != nil {
		return fmt.Errorf("steps: render %s: %w", j.Filename(), err)
	}
	return nil
}

// WriteFile renders the script and writes it to OutputPath, creating parent
// directories as needed. The file is replaced atomically and made
// executable. A nil Output with a nil error means the step was skipped.
func (j Job) WriteFile(ctx context.Context) (*Output, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !j.Eligible() {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := j.Render(&buf); err != nil {
		return nil, err
	}

	path := j.OutputPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("steps: failed to create directory %q: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".janus-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("steps: failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	_, writeErr := tmpFile.Write(buf.Bytes())
	closeErr := tmpFile.Close()
	if writeErr != nil {
		err = fmt.Errorf("steps: failed to write %s: %w", j.Filename(), writeErr)
		return nil, err
	}
	if closeErr != nil {
		err = fmt.Errorf("steps: failed to close temp file: %w", closeErr)
		return nil, err
	}
	if err = os.Chmod(tmpPath, scriptMode); err != nil {
		err = fmt.Errorf("steps: failed to chmod %s: %w", j.Filename(), err)
		return nil, err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		err = fmt.Errorf("steps: failed to rename temp file: %w", err)
		return nil, err
	}

	sum := sha256.Sum256(buf.Bytes())
	return &Output{
		Path:   path,
		Size:   buf.Len(),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}
