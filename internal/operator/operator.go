// Package operator defines the maintenance Operator: a named, non-owning view
// over the resources of a topology that one maintenance actor acts upon.
//
// An Operator holds references, not copies. A patch attached to a shared
// Database after it was added is visible through every Operator holding it.
package operator

import (
	"fmt"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

// Operator is the set of resources a maintenance actor is responsible for.
// Lists are append-only; adding the same resource twice keeps both entries.
type Operator struct {
	id           string
	databases    []*topology.Database
	ecsServices  []*topology.ECSService
	deployments  []*topology.Deployment
	statefulSets []*topology.StatefulSet
}

// New returns an empty Operator.
func New(id string) *Operator {
	return &Operator{id: id}
}

// ID returns the operator identifier.
func (o *Operator) ID() string { return o.id }

func (o *Operator) AddDatabase(db *topology.Database) {
	o.databases = append(o.databases, db)
}

func (o *Operator) AddECSService(svc *topology.ECSService) {
	o.ecsServices = append(o.ecsServices, svc)
}

func (o *Operator) AddDeployment(dpm *topology.Deployment) {
	o.deployments = append(o.deployments, dpm)
}

func (o *Operator) AddStatefulSet(sts *topology.StatefulSet) {
	o.statefulSets = append(o.statefulSets, sts)
}

// Databases returns the referenced databases in the order they were added.
func (o *Operator) Databases() []*topology.Database {
	return append([]*topology.Database(nil), o.databases...)
}

// ECSServices returns the referenced ECS services in the order they were added.
func (o *Operator) ECSServices() []*topology.ECSService {
	return append([]*topology.ECSService(nil), o.ecsServices...)
}

// Deployments returns the referenced Deployments in the order they were added.
func (o *Operator) Deployments() []*topology.Deployment {
	return append([]*topology.Deployment(nil), o.deployments...)
}

// StatefulSets returns the referenced StatefulSets in the order they were added.
func (o *Operator) StatefulSets() []*topology.StatefulSet {
	return append([]*topology.StatefulSet(nil), o.statefulSets...)
}

// Count returns the total number of references held, duplicates included.
func (o *Operator) Count() int {
	return len(o.databases) + len(o.ecsServices) + len(o.deployments) + len(o.statefulSets)
}

func (o *Operator) String() string {
	return fmt.Sprintf("Operator(id: %s, %d databases, %d ecs services, %d deployments, %d statefulsets)",
		o.id, len(o.databases), len(o.ecsServices), len(o.deployments), len(o.statefulSets))
}

// Unique returns s without repeated elements, keeping the first occurrence of
// each.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
