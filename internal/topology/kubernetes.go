package topology

import "fmt"

// Platform identifies where a Kubernetes cluster is hosted.
type Platform interface {
	platform()
}

// AWSPlatform marks a cluster as hosted (as EKS) in an AWS region.
type AWSPlatform struct {
	region *Region
}

func (AWSPlatform) platform() {}

// Region returns the hosting region.
func (p AWSPlatform) Region() *Region { return p.region }

// OnAWS returns the platform for a cluster hosted in region.
func OnAWS(region *Region) AWSPlatform { return AWSPlatform{region: region} }

// K8sCluster is a Kubernetes cluster.
type K8sCluster struct {
	name       string
	platform   Platform
	namespaces registry[*Namespace]
}

// NewK8sCluster creates a Kubernetes cluster. When the platform is an
// AWSPlatform the cluster is also registered in the hosting region. A nil
// platform yields a standalone cluster.
func NewK8sCluster(name string, platform Platform) (*K8sCluster, error) {
	if name == "" {
		return nil, &SchemaError{Field: "name", Reason: "empty eks cluster"}
	}
	cluster := &K8sCluster{
		name:       name,
		platform:   platform,
		namespaces: newRegistry[*Namespace]("namespace"),
	}
	if aws, ok := platform.(AWSPlatform); ok && aws.region != nil {
		if err := aws.region.k8sClusters.add(aws.region.ref(), name, cluster); err != nil {
			return nil, err
		}
	}
	return cluster, nil
}

func (c *K8sCluster) Name() string       { return c.name }
func (c *K8sCluster) Platform() Platform { return c.platform }

// Region returns the hosting AWS region, or nil when the cluster is not on AWS.
func (c *K8sCluster) Region() *Region {
	if aws, ok := c.platform.(AWSPlatform); ok {
		return aws.region
	}
	return nil
}

func (c *K8sCluster) String() string {
	return fmt.Sprintf("K8sCluster(name: %s, %d namespaces)", c.name, c.namespaces.len())
}

func (c *K8sCluster) ref() string {
	if r := c.Region(); r != nil {
		return "eks cluster " + r.name + "/" + c.name
	}
	return "eks cluster " + c.name
}

// AddNamespace creates a namespace in this cluster.
func (c *K8sCluster) AddNamespace(name string) (*Namespace, error) {
	if name == "" {
		return nil, &SchemaError{Path: c.ref(), Field: "name", Reason: "empty namespace"}
	}
	ns := &Namespace{
		name:         name,
		cluster:      c,
		statefulSets: newRegistry[*StatefulSet]("statefulset"),
		deployments:  newRegistry[*Deployment]("deployment"),
	}
	if err := c.namespaces.add(c.ref(), name, ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// Namespace returns the namespace registered under name.
func (c *K8sCluster) Namespace(name string) (*Namespace, error) {
	return c.namespaces.get(c.ref(), name)
}

// Namespaces returns the namespaces in registration order.
func (c *K8sCluster) Namespaces() []*Namespace { return c.namespaces.list() }

// Namespace is a Kubernetes namespace.
type Namespace struct {
	name         string
	cluster      *K8sCluster
	statefulSets registry[*StatefulSet]
	deployments  registry[*Deployment]
}

func (n *Namespace) Name() string         { return n.name }
func (n *Namespace) Cluster() *K8sCluster { return n.cluster }

func (n *Namespace) String() string {
	return fmt.Sprintf("Namespace(name: %s, %d statefulsets, %d deployments)",
		n.name, n.statefulSets.len(), n.deployments.len())
}

func (n *Namespace) ref() string { return fmt.Sprintf("namespace %s/%s", n.cluster.name, n.name) }

// WorkloadSpec describes a StatefulSet or Deployment to add to a namespace.
type WorkloadSpec struct {
	Name       string
	Replicas   int
	Patch      *ReplicasPatch
	Properties Properties
}

func (n *Namespace) newWorkload(kind string, spec WorkloadSpec) (workload, error) {
	if spec.Name == "" {
		return workload{}, &SchemaError{Path: n.ref(), Field: "name", Reason: "empty " + kind}
	}
	if spec.Replicas < 0 {
		return workload{}, &SchemaError{Path: n.ref() + " " + kind + " " + spec.Name, Field: "replicas", Reason: "negative count for"}
	}
	if spec.Patch != nil && spec.Patch.Replicas.Or(0) < 0 {
		return workload{}, &SchemaError{Path: n.ref() + " " + kind + " " + spec.Name, Field: "replicas", Reason: "negative patch count for"}
	}
	w := workload{
		name:       spec.Name,
		namespace:  n,
		replicas:   spec.Replicas,
		properties: spec.Properties,
	}
	w.attach(spec.Patch)
	return w, nil
}

// AddStatefulSet creates a StatefulSet in this namespace.
func (n *Namespace) AddStatefulSet(spec WorkloadSpec) (*StatefulSet, error) {
	w, err := n.newWorkload("statefulset", spec)
	if err != nil {
		return nil, err
	}
	sts := &StatefulSet{workload: w}
	if err := n.statefulSets.add(n.ref(), spec.Name, sts); err != nil {
		return nil, err
	}
	return sts, nil
}

// StatefulSet returns the StatefulSet registered under name.
func (n *Namespace) StatefulSet(name string) (*StatefulSet, error) {
	return n.statefulSets.get(n.ref(), name)
}

// StatefulSets returns the StatefulSets in registration order.
func (n *Namespace) StatefulSets() []*StatefulSet { return n.statefulSets.list() }

// AddDeployment creates a Deployment in this namespace.
func (n *Namespace) AddDeployment(spec WorkloadSpec) (*Deployment, error) {
	w, err := n.newWorkload("deployment", spec)
	if err != nil {
		return nil, err
	}
	dpm := &Deployment{workload: w}
	if err := n.deployments.add(n.ref(), spec.Name, dpm); err != nil {
		return nil, err
	}
	return dpm, nil
}

// Deployment returns the Deployment registered under name.
func (n *Namespace) Deployment(name string) (*Deployment, error) {
	return n.deployments.get(n.ref(), name)
}

// Deployments returns the Deployments in registration order.
func (n *Namespace) Deployments() []*Deployment { return n.deployments.list() }

// workload holds the fields StatefulSets and Deployments share.
type workload struct {
	Patchable[ReplicasPatch]

	name       string
	namespace  *Namespace
	replicas   int
	properties Properties
}

func (w *workload) Name() string              { return w.name }
func (w *workload) Namespace() *Namespace     { return w.namespace }
func (w *workload) Replicas() int             { return w.replicas }
func (w *workload) Properties() Properties    { return w.properties }
func (w *workload) RestartAfterUpgrade() bool { return w.properties.RestartAfterUpgrade }

// StatefulSet is a Kubernetes StatefulSet.
type StatefulSet struct {
	workload
}

func (s *StatefulSet) String() string {
	return fmt.Sprintf("StatefulSet(name: %s, replicas: %d, restart_after_upgrade: %t)",
		s.name, s.replicas, s.properties.RestartAfterUpgrade)
}

// Deployment is a Kubernetes Deployment.
type Deployment struct {
	workload
}

func (d *Deployment) String() string {
	return fmt.Sprintf("Deployment(name: %s, replicas: %d, restart_after_upgrade: %t)",
		d.name, d.replicas, d.properties.RestartAfterUpgrade)
}
