package steps

import (
	"fmt"
	"strings"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

// replicas applies zero mode, then the patch, then the base replica count.
func replicas(base int, patch topology.ReplicasPatch, patched, zero bool) int {
	if zero {
		return 0
	}
	if patched {
		return patch.Replicas.Or(base)
	}
	return base
}

// UpdateK8sStatefulSetReplicas scales statefulsets that are not restarted
// after the upgrade.
type UpdateK8sStatefulSetReplicas struct {
	base
	zero bool
}

func NewUpdateK8sStatefulSetReplicas(zero bool) *UpdateK8sStatefulSetReplicas {
	return &UpdateK8sStatefulSetReplicas{
		base: base{name: "update-k8s-statefulset-replicas", suffix: zeroSuffix(zero)},
		zero: zero,
	}
}

func (s *UpdateK8sStatefulSetReplicas) Eligible(op *operator.Operator) bool {
	for _, sts := range op.StatefulSets() {
		if !sts.RestartAfterUpgrade() {
			return true
		}
	}
	return false
}

func (s *UpdateK8sStatefulSetReplicas) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, sts := range operator.Unique(op.StatefulSets()) {
		if sts.RestartAfterUpgrade() {
			continue
		}
		patch, ok := sts.Patch()
		cmds = append(cmds, Command{fmt.Sprintf(
			"# kubectl scale -n %s statefulsets %s --replicas=%d",
			sts.Namespace().Name(), sts.Name(), replicas(sts.Replicas(), patch, ok, s.zero))})
	}
	return cmds
}

// UpdateK8sDeploymentReplicas scales deployments that are not restarted after
// the upgrade.
type UpdateK8sDeploymentReplicas struct {
	base
	zero bool
}

func NewUpdateK8sDeploymentReplicas(zero bool) *UpdateK8sDeploymentReplicas {
	return &UpdateK8sDeploymentReplicas{
		base: base{name: "change-k8s-deployment-replicas", suffix: zeroSuffix(zero)},
		zero: zero,
	}
}

func (s *UpdateK8sDeploymentReplicas) Eligible(op *operator.Operator) bool {
	for _, dpm := range op.Deployments() {
		if !dpm.RestartAfterUpgrade() {
			return true
		}
	}
	return false
}

func (s *UpdateK8sDeploymentReplicas) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, dpm := range operator.Unique(op.Deployments()) {
		if dpm.RestartAfterUpgrade() {
			continue
		}
		patch, ok := dpm.Patch()
		cmds = append(cmds, Command{fmt.Sprintf(
			"# kubectl scale -n %s deployment/%s --replicas=%d",
			dpm.Namespace().Name(), dpm.Name(), replicas(dpm.Replicas(), patch, ok, s.zero))})
	}
	return cmds
}

// RestartK8sDeployment rolls out deployments flagged restart_after_upgrade,
// scaling them to the patched replica count when one is set.
type RestartK8sDeployment struct{ base }

func NewRestartK8sDeployment() *RestartK8sDeployment {
	return &RestartK8sDeployment{base{name: "restart-k8s-deployment"}}
}

func (s *RestartK8sDeployment) Eligible(op *operator.Operator) bool {
	for _, dpm := range op.Deployments() {
		if dpm.RestartAfterUpgrade() {
			return true
		}
	}
	return false
}

func (s *RestartK8sDeployment) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, dpm := range operator.Unique(op.Deployments()) {
		if !dpm.RestartAfterUpgrade() {
			continue
		}
		ns := dpm.Namespace().Name()
		cmd := Command{fmt.Sprintf("# kubectl rollout restart -n %s deployment/%s", ns, dpm.Name())}
		if patch, ok := dpm.Patch(); ok {
			if n, set := patch.Replicas.Get(); set {
				cmd = append(cmd, fmt.Sprintf("# kubectl scale -n %s deployment/%s --replicas=%d", ns, dpm.Name(), n))
			}
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// QueryK8sDeploymentStatus lists deployments, one command per namespace.
type QueryK8sDeploymentStatus struct{ base }

func NewQueryK8sDeploymentStatus() *QueryK8sDeploymentStatus {
	return &QueryK8sDeploymentStatus{base{name: "query-k8s-deployment-status"}}
}

func (s *QueryK8sDeploymentStatus) Eligible(op *operator.Operator) bool {
	return len(op.Deployments()) > 0
}

func (s *QueryK8sDeploymentStatus) Commands(op *operator.Operator) []Command {
	groups := groupBy(operator.Unique(op.Deployments()), func(dpm *topology.Deployment) *topology.Namespace {
		return dpm.Namespace()
	})
	cmds := make([]Command, 0, len(groups))
	for _, g := range groups {
		names := make([]string, len(g.items))
		for i, dpm := range g.items {
			names[i] = dpm.Name()
		}
		cmds = append(cmds, Command{fmt.Sprintf(
			"kubectl get deployments -n %s %s", g.key.Name(), strings.Join(names, " "))})
	}
	return cmds
}
