package lint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

// cleanInput is a small topology that passes every rule.
func cleanInput(t *testing.T) (*Input, *topology.Region, *topology.Namespace, *operator.Operator) {
	t.Helper()
	topo := topology.New()
	region, err := topo.AddRegion("us-east-1")
	require.NoError(t, err)

	db, err := region.AddDatabase(topology.DatabaseSpec{
		ID: "orders-db", Type: topology.DatabaseTypeInstance, Host: "orders.example.com",
		EngineVersion: "13.7", ClassType: "db.r5.large",
		Patch: &topology.DatabasePatch{EngineVersion: topology.Some("15.4")},
	})
	require.NoError(t, err)

	shop, err := region.AddECSCluster("shop")
	require.NoError(t, err)
	svc, err := shop.AddService(topology.ECSServiceSpec{Name: "checkout", DesiredCount: 2})
	require.NoError(t, err)

	k8s, err := region.AddK8sCluster("platform")
	require.NoError(t, err)
	ns, err := k8s.AddNamespace("payments")
	require.NoError(t, err)
	dpm, err := ns.AddDeployment(topology.WorkloadSpec{Name: "payments-api", Replicas: 3})
	require.NoError(t, err)

	op := operator.New("alice")
	op.AddDatabase(db)
	op.AddECSService(svc)
	op.AddDeployment(dpm)

	return &Input{Topology: topo, Operators: []*operator.Operator{op}}, region, ns, op
}

func findingsFor(report *models.LintReport, rule string) []models.Finding {
	var out []models.Finding
	for _, f := range report.Findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestEvaluateClean(t *testing.T) {
	in, _, _, _ := cleanInput(t)
	report, err := NewEngine(nil).Evaluate(context.Background(), "m1", in)
	require.NoError(t, err)

	assert.Equal(t, models.LintPassed, report.Status)
	assert.Empty(t, report.Findings)
	assert.Equal(t, "m1", report.MaintenanceID)
}

func TestRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator)
		rule     string
		severity models.Severity
		resource string
	}{
		{
			name: "invalid namespace",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				c, err := region.K8sCluster("platform")
				require.NoError(t, err)
				_, err = c.AddNamespace("Payments_NS")
				require.NoError(t, err)
			},
			rule: "k8s-name", severity: models.SeverityError, resource: "namespace platform/Payments_NS",
		},
		{
			name: "invalid deployment name",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				d, err := ns.AddDeployment(topology.WorkloadSpec{Name: "API_Server", Replicas: 1})
				require.NoError(t, err)
				op.AddDeployment(d)
			},
			rule: "k8s-name", severity: models.SeverityError, resource: "deployment platform/payments/API_Server",
		},
		{
			name: "invalid rds identifier",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				db, err := region.AddDatabase(topology.DatabaseSpec{ID: "1orders--db", Type: topology.DatabaseTypeInstance, Host: "h"})
				require.NoError(t, err)
				op.AddDatabase(db)
			},
			rule: "rds-identifier", severity: models.SeverityError, resource: "database us-east-1/1orders--db",
		},
		{
			name: "invalid ecs service name",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				c, err := region.ECSCluster("shop")
				require.NoError(t, err)
				svc, err := c.AddService(topology.ECSServiceSpec{Name: "check out", DesiredCount: 1})
				require.NoError(t, err)
				op.AddECSService(svc)
			},
			rule: "ecs-name", severity: models.SeverityError, resource: "ecs service us-east-1/shop/check out",
		},
		{
			name: "engine downgrade",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				db, err := region.AddDatabase(topology.DatabaseSpec{
					ID: "catalog-db", Type: topology.DatabaseTypeCluster, Host: "h", Engine: topology.EngineMySQL,
					EngineVersion: "8.0.35",
					Patch:         &topology.DatabasePatch{EngineVersion: topology.Some("8.0.28")},
				})
				require.NoError(t, err)
				op.AddDatabase(db)
			},
			rule: "engine-downgrade", severity: models.SeverityWarning, resource: "database us-east-1/catalog-db",
		},
		{
			name: "noop patch",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				d, err := ns.AddDeployment(topology.WorkloadSpec{
					Name: "worker", Replicas: 2, Patch: &topology.ReplicasPatch{Replicas: topology.Some(2)},
				})
				require.NoError(t, err)
				op.AddDeployment(d)
			},
			rule: "noop-patch", severity: models.SeverityInfo, resource: "deployment platform/payments/worker",
		},
		{
			name: "duplicate reference",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				op.AddECSService(op.ECSServices()[0])
			},
			rule: "duplicate-reference", severity: models.SeverityWarning, resource: "ecs service us-east-1/shop/checkout (2 times)",
		},
		{
			name: "unassigned resource",
			mutate: func(t *testing.T, in *Input, region *topology.Region, ns *topology.Namespace, op *operator.Operator) {
				_, err := ns.AddStatefulSet(topology.WorkloadSpec{Name: "ledger", Replicas: 3})
				require.NoError(t, err)
			},
			rule: "unassigned-resource", severity: models.SeverityInfo, resource: "statefulset platform/payments/ledger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, region, ns, op := cleanInput(t)
			tt.mutate(t, in, region, ns, op)

			report, err := NewEngine(nil).Evaluate(context.Background(), "m1", in)
			require.NoError(t, err)

			found := findingsFor(report, tt.rule)
			require.Len(t, found, 1, "findings: %+v", report.Findings)
			assert.Equal(t, tt.severity, found[0].Severity)
			assert.Equal(t, tt.resource, found[0].Resource)

			if tt.severity == models.SeverityError {
				assert.Equal(t, models.LintFailed, report.Status)
			} else {
				assert.Equal(t, models.LintPassed, report.Status)
			}
		})
	}
}

func TestUnparsableVersionsAreSkipped(t *testing.T) {
	in, region, _, op := cleanInput(t)
	db, err := region.AddDatabase(topology.DatabaseSpec{
		ID: "aurora-db", Type: topology.DatabaseTypeCluster, Host: "h", Engine: topology.EngineMySQL,
		EngineVersion: "5.7.mysql_aurora.2.11.2",
		Patch:         &topology.DatabasePatch{EngineVersion: topology.Some("5.7.mysql_aurora.2.10.0")},
	})
	require.NoError(t, err)
	op.AddDatabase(db)

	report, err := NewEngine(nil).Evaluate(context.Background(), "m1", in)
	require.NoError(t, err)
	assert.Empty(t, findingsFor(report, "engine-downgrade"))
}

func TestDisable(t *testing.T) {
	in, _, ns, _ := cleanInput(t)
	_, err := ns.AddStatefulSet(topology.WorkloadSpec{Name: "ledger", Replicas: 3})
	require.NoError(t, err)

	e := NewEngine(nil)
	require.NoError(t, e.Disable("unassigned-resource"))
	assert.Error(t, e.Disable("no-such-rule"))

	report, err := e.Evaluate(context.Background(), "m1", in)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Len(t, e.Rules(), 7)
}

func TestEvaluateRequiresTopology(t *testing.T) {
	_, err := NewEngine(nil).Evaluate(context.Background(), "m1", &Input{})
	assert.Error(t, err)
}
