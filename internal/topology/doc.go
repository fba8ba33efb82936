// Package topology is the in-memory resource model for a maintenance run.
//
// A Topology holds AWS regions; regions hold RDS databases, ECS clusters and
// the Kubernetes clusters hosted in them; Kubernetes clusters hold namespaces,
// which hold StatefulSets and Deployments. Children are always created through
// their parent (Region.AddDatabase, Namespace.AddDeployment, ...): the call
// builds the child, fixes its back-reference to the parent and registers it,
// so the parent's lookup returns the child as soon as the call returns.
//
// The model is write-once for a run. Entities are not safe for concurrent
// mutation, but may be read concurrently once loading is complete.
package topology
