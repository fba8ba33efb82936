package steps

import (
	"fmt"
	"strings"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

const ecsServiceQuery = "'services[*].{ServiceArn:serviceArn,ServiceName:serviceName,Status:status," +
	"DesiredCount:desiredCount,RunningCount:runningCount,PendingCount:pendingCount,Events:events[:2]}'"

func ecsServices(op *operator.Operator) []*topology.ECSService {
	return operator.Unique(op.ECSServices())
}

// desiredCount applies zero mode, then the patch, then the base count.
func desiredCount(svc *topology.ECSService, zero bool) int {
	if zero {
		return 0
	}
	if patch, ok := svc.Patch(); ok {
		return patch.DesiredCount.Or(svc.DesiredCount())
	}
	return svc.DesiredCount()
}

// UpdateECSTaskCount sets the desired count of every ECS service that is not
// restarted after the upgrade.
type UpdateECSTaskCount struct {
	base
	zero bool
}

// NewUpdateECSTaskCount returns the step in resume mode, or zero mode when
// zero is true.
func NewUpdateECSTaskCount(zero bool) *UpdateECSTaskCount {
	return &UpdateECSTaskCount{
		base: base{name: "update-ecs-task-count", suffix: zeroSuffix(zero), sep: "# sleep 2"},
		zero: zero,
	}
}

func (s *UpdateECSTaskCount) Eligible(op *operator.Operator) bool {
	return len(op.ECSServices()) > 0
}

func (s *UpdateECSTaskCount) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, svc := range ecsServices(op) {
		if svc.RestartAfterUpgrade() {
			continue
		}
		cmds = append(cmds, Command{fmt.Sprintf(
			"# aws ecs update-service --region %s --cluster %s --service %s --desired-count %d",
			svc.Cluster().Region().Name(), svc.Cluster().Name(), svc.Name(), desiredCount(svc, s.zero))})
	}
	return cmds
}

// RestartECSService forces a new deployment of services flagged
// restart_after_upgrade.
type RestartECSService struct{ base }

func NewRestartECSService() *RestartECSService {
	return &RestartECSService{base{name: "restart-ecs-service", sep: "# sleep 2"}}
}

func (s *RestartECSService) Eligible(op *operator.Operator) bool {
	for _, svc := range op.ECSServices() {
		if svc.RestartAfterUpgrade() {
			return true
		}
	}
	return false
}

func (s *RestartECSService) Commands(op *operator.Operator) []Command {
	var cmds []Command
	for _, svc := range ecsServices(op) {
		if !svc.RestartAfterUpgrade() {
			continue
		}
		cmds = append(cmds, Command{fmt.Sprintf(
			"# aws ecs update-service --force-new-deployment --region %s --cluster %s --service %s",
			svc.Cluster().Region().Name(), svc.Cluster().Name(), svc.Name())})
	}
	return cmds
}

// QueryECSTaskStatus describes services, one command per region and cluster.
type QueryECSTaskStatus struct{ base }

func NewQueryECSTaskStatus() *QueryECSTaskStatus {
	return &QueryECSTaskStatus{base{name: "query-ecs-task-status"}}
}

func (s *QueryECSTaskStatus) Eligible(op *operator.Operator) bool {
	return len(op.ECSServices()) > 0
}

func (s *QueryECSTaskStatus) Commands(op *operator.Operator) []Command {
	groups := groupBy(ecsServices(op), func(svc *topology.ECSService) *topology.ECSCluster {
		return svc.Cluster()
	})
	cmds := make([]Command, 0, len(groups))
	for _, g := range groups {
		names := make([]string, len(g.items))
		for i, svc := range g.items {
			names[i] = svc.Name()
		}
		cmds = append(cmds, Command{fmt.Sprintf(
			"aws ecs describe-services --region %s --cluster %s --services %s --query %s",
			g.key.Region().Name(), g.key.Name(), strings.Join(names, " "), ecsServiceQuery)})
	}
	return cmds
}

type group[K comparable, V any] struct {
	key   K
	items []V
}

// groupBy groups items by key, keeping the order in which keys and items are
// first seen.
func groupBy[K comparable, V any](items []V, key func(V) K) []group[K, V] {
	var groups []group[K, V]
	index := make(map[K]int)
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group[K, V]{key: k})
		}
		groups[i].items = append(groups[i].items, item)
	}
	return groups
}
