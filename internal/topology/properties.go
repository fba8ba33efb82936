package topology

// PropertyRestartAfterUpgrade is the document key for Properties.RestartAfterUpgrade.
const PropertyRestartAfterUpgrade = "restart_after_upgrade"

// Properties holds the out-of-band flags an ECS service or workload may carry.
// Only declared keys exist; anything else in a document is ignored.
type Properties struct {
	// RestartAfterUpgrade moves the resource out of the scale down/up steps and
	// into the restart steps.
	RestartAfterUpgrade bool
}
