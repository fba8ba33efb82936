package maintenance

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/loader"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/steps"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

// Document names inside a maintenance directory.
const (
	ResourceFile = "resource.yaml"
	OperatorFile = "operator.yaml"
	PlanFile     = "plan.yaml"
)

// Bundle is everything loaded for one maintenance. It is read-only once
// returned.
type Bundle struct {
	ID        string
	Dir       string
	Topology  *topology.Topology
	Operators []*operator.Operator
	Plan      steps.Plan
	// Fingerprint identifies the document contents. It changes whenever any
	// document changes.
	Fingerprint string
}

// Operator returns the operator with the given id.
func (b *Bundle) Operator(id string) (*operator.Operator, error) {
	for _, op := range b.Operators {
		if op.ID() == id {
			return op, nil
		}
	}
	return nil, &topology.NotFoundError{Kind: "operator", Name: id, Parent: "maintenance " + b.ID}
}

// OperatorIDs returns the operator ids in document order.
func (b *Bundle) OperatorIDs() []string {
	ids := make([]string, len(b.Operators))
	for i, op := range b.Operators {
		ids[i] = op.ID()
	}
	return ids
}

func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// loadBundle reads the documents of maintenance id from dir. A missing plan
// document means the default plan.
func loadBundle(id, dir string) (*Bundle, error) {
	if !validID(id) {
		return nil, &topology.NotFoundError{Kind: "maintenance", Name: id}
	}

	resourceData, err := readDocument(id, dir, ResourceFile)
	if err != nil {
		return nil, err
	}
	operatorData, err := readDocument(id, dir, OperatorFile)
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	h.Write(resourceData)
	h.Write([]byte{0})
	h.Write(operatorData)

	plan := steps.DefaultPlan()
	planData, err := os.ReadFile(filepath.Join(dir, PlanFile))
	switch {
	case err == nil:
		if plan, err = steps.DecodePlan(bytes.NewReader(planData)); err != nil {
			return nil, fmt.Errorf("maintenance: %s: %w", PlanFile, err)
		}
		h.Write([]byte{0})
		h.Write(planData)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("maintenance: read %s: %w", PlanFile, err)
	}

	topo, err := loader.LoadResources(bytes.NewReader(resourceData))
	if err != nil {
		return nil, fmt.Errorf("maintenance: %s: %w", ResourceFile, err)
	}
	ops, err := loader.LoadOperators(bytes.NewReader(operatorData), topo)
	if err != nil {
		return nil, fmt.Errorf("maintenance: %s: %w", OperatorFile, err)
	}

	return &Bundle{
		ID:          id,
		Dir:         dir,
		Topology:    topo,
		Operators:   ops,
		Plan:        plan,
		Fingerprint: hex.EncodeToString(h.Sum(nil))[:16],
	}, nil
}

func readDocument(id, dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &topology.NotFoundError{Kind: "document", Name: name, Parent: "maintenance " + id}
	}
	if err != nil {
		return nil, fmt.Errorf("maintenance: read %s: %w", name, err)
	}
	return data, nil
}
