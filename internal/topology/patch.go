package topology

// ECSServicePatch overrides the desired task count of an ECS service.
type ECSServicePatch struct {
	DesiredCount Optional[int]
}

// DatabasePatch overrides the engine version and/or instance class of a database.
type DatabasePatch struct {
	EngineVersion Optional[string]
	ClassType     Optional[string]
}

// ReplicasPatch overrides the replica count of a StatefulSet or Deployment.
type ReplicasPatch struct {
	Replicas Optional[int]
}

// Patchable is embedded by entities that carry an optional patch. The patch is
// applied at render time; the base fields of the entity are never mutated.
type Patchable[P any] struct {
	patch    P
	hasPatch bool
}

// Patch returns the patch and whether one is attached.
func (p *Patchable[P]) Patch() (P, bool) {
	return p.patch, p.hasPatch
}

// HasPatch reports whether a patch is attached.
func (p *Patchable[P]) HasPatch() bool { return p.hasPatch }

// SetPatch attaches (or replaces) the patch.
func (p *Patchable[P]) SetPatch(patch P) {
	p.patch = patch
	p.hasPatch = true
}

// ClearPatch detaches the patch.
func (p *Patchable[P]) ClearPatch() {
	var zero P
	p.patch = zero
	p.hasPatch = false
}

func (p *Patchable[P]) attach(patch *P) {
	if patch != nil {
		p.SetPatch(*patch)
	}
}
