package steps

import (
	"fmt"
	"sort"
)

// Definition describes a step kind that plans can refer to.
type Definition struct {
	Kind        string `json:"kind" yaml:"kind"`
	Zeroable    bool   `json:"zeroable" yaml:"zeroable"`
	Description string `json:"description" yaml:"description"`

	build func(zero bool) Step
}

var definitions = map[string]Definition{}

func register(d Definition) {
	if _, dup := definitions[d.Kind]; dup {
		panic("steps: duplicate step kind " + d.Kind)
	}
	definitions[d.Kind] = d
}

func fixed(fn func() Step) func(bool) Step {
	return func(bool) Step { return fn() }
}

func init() {
	register(Definition{
		Kind: "update-ecs-task-count", Zeroable: true,
		Description: "Set ECS service desired counts (patched value, or 0 in zero mode)",
		build:       func(zero bool) Step { return NewUpdateECSTaskCount(zero) },
	})
	register(Definition{
		Kind: "update-k8s-statefulset-replicas", Zeroable: true,
		Description: "Scale statefulsets (patched value, or 0 in zero mode)",
		build:       func(zero bool) Step { return NewUpdateK8sStatefulSetReplicas(zero) },
	})
	register(Definition{
		Kind: "change-k8s-deployment-replicas", Zeroable: true,
		Description: "Scale deployments (patched value, or 0 in zero mode)",
		build:       func(zero bool) Step { return NewUpdateK8sDeploymentReplicas(zero) },
	})
	register(Definition{
		Kind:        "dump-pgstats",
		Description: "Dump pg_stat_all_tables of PostgreSQL databases",
		build:       fixed(func() Step { return NewDumpPgstats() }),
	})
	register(Definition{
		Kind:        "dump-mysqltablestatus",
		Description: "Dump table status of MySQL databases",
		build:       fixed(func() Step { return NewDumpMysqlTableStatus() }),
	})
	register(Definition{
		Kind:        "modify-database-engineversion",
		Description: "Apply patched engine versions to RDS databases",
		build:       fixed(func() Step { return NewModifyDatabaseEngineVersion() }),
	})
	register(Definition{
		Kind:        "modify-database-classtype",
		Description: "Apply patched instance classes to RDS databases",
		build:       fixed(func() Step { return NewModifyDatabaseClassType() }),
	})
	register(Definition{
		Kind:        "query-database-status",
		Description: "Describe RDS databases",
		build:       fixed(func() Step { return NewQueryDatabaseStatus() }),
	})
	register(Definition{
		Kind:        "restart-k8s-deployment",
		Description: "Roll out deployments flagged restart_after_upgrade",
		build:       fixed(func() Step { return NewRestartK8sDeployment() }),
	})
	register(Definition{
		Kind:        "restart-ecs-service",
		Description: "Force new deployments of ECS services flagged restart_after_upgrade",
		build:       fixed(func() Step { return NewRestartECSService() }),
	})
	register(Definition{
		Kind:        "query-k8s-deployment-status",
		Description: "List deployments per namespace",
		build:       fixed(func() Step { return NewQueryK8sDeploymentStatus() }),
	})
	register(Definition{
		Kind:        "query-ecs-task-status",
		Description: "Describe ECS services per region and cluster",
		build:       fixed(func() Step { return NewQueryECSTaskStatus() }),
	})
}

// Definitions returns every registered step kind, sorted by kind.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Lookup returns the definition of kind.
func Lookup(kind string) (Definition, bool) {
	d, ok := definitions[kind]
	return d, ok
}

// New builds a step of the given kind. zero is only accepted by zeroable kinds.
func New(kind string, zero bool) (Step, error) {
	d, ok := definitions[kind]
	if !ok {
		return nil, fmt.Errorf("steps: unknown step kind %q", kind)
	}
	if zero && !d.Zeroable {
		return nil, fmt.Errorf("steps: step kind %q has no zero mode", kind)
	}
	return d.build(zero), nil
}
