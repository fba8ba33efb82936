package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

func TestOperator(t *testing.T) {
	op := New("kobe")
	assert.Equal(t, "kobe", op.ID())

	eks, err := topology.NewK8sCluster("allinone", nil)
	require.NoError(t, err)
	ns, _ := eks.AddNamespace("general")
	dpm, _ := ns.AddDeployment(topology.WorkloadSpec{Name: "simple-deployment", Replicas: 1})
	sts, _ := ns.AddStatefulSet(topology.WorkloadSpec{Name: "simple-stateful-set", Replicas: 1})
	op.AddDeployment(dpm)
	op.AddStatefulSet(sts)

	topo := topology.New()
	region, _ := topo.AddRegion("us-east-1")
	ecs, _ := region.AddECSCluster("allinone")
	svc, _ := ecs.AddService(topology.ECSServiceSpec{Name: "simple-service", DesiredCount: 1})
	op.AddECSService(svc)
	db, err := region.AddDatabase(topology.DatabaseSpec{
		ID:            "simple-database",
		Type:          topology.DatabaseTypeInstance,
		Host:          "simple-database.us-east-1.rds.amazonaws.com",
		Port:          topology.Some(5432),
		Engine:        topology.EnginePostgreSQL,
		EngineVersion: "13.6",
		ClassType:     "db.t2.micro",
	})
	require.NoError(t, err)
	op.AddDatabase(db)

	assert.Len(t, op.Deployments(), 1)
	assert.Len(t, op.StatefulSets(), 1)
	assert.Len(t, op.ECSServices(), 1)
	assert.Len(t, op.Databases(), 1)
	assert.Equal(t, 4, op.Count())
}

func TestOperatorHoldsReferences(t *testing.T) {
	topo := topology.New()
	region, _ := topo.AddRegion("us-east-1")
	db, _ := region.AddDatabase(topology.DatabaseSpec{ID: "db1", Type: topology.DatabaseTypeInstance, Host: "h"})

	a, b := New("a"), New("b")
	a.AddDatabase(db)
	b.AddDatabase(db)

	db.SetPatch(topology.DatabasePatch{ClassType: topology.Some("db.r6g.xlarge")})

	for _, op := range []*Operator{a, b} {
		got := op.Databases()[0]
		patch, ok := got.Patch()
		require.True(t, ok, op.ID())
		assert.Equal(t, "db.r6g.xlarge", patch.ClassType.Or(""))
	}
}

func TestDuplicatesPreserved(t *testing.T) {
	cluster, _ := topology.NewK8sCluster("c", nil)
	ns, _ := cluster.AddNamespace("n")
	dpm, _ := ns.AddDeployment(topology.WorkloadSpec{Name: "d", Replicas: 1})
	other, _ := ns.AddDeployment(topology.WorkloadSpec{Name: "e", Replicas: 1})

	op := New("x")
	op.AddDeployment(dpm)
	op.AddDeployment(other)
	op.AddDeployment(dpm)

	assert.Len(t, op.Deployments(), 3)
	assert.Equal(t, []*topology.Deployment{dpm, other}, Unique(op.Deployments()))
}

func TestListsAreCopies(t *testing.T) {
	cluster, _ := topology.NewK8sCluster("c", nil)
	ns, _ := cluster.AddNamespace("n")
	dpm, _ := ns.AddDeployment(topology.WorkloadSpec{Name: "d", Replicas: 1})

	op := New("x")
	op.AddDeployment(dpm)
	list := op.Deployments()
	list[0] = nil

	assert.NotNil(t, op.Deployments()[0])
}
