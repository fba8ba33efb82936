package loader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

type operatorsDoc = orderedMap[*orderedMap[operatorRegionDoc]]

func decodeOperators(r io.Reader) (*operatorsDoc, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: read operator document: %w", err)
	}
	var doc operatorsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &topology.SchemaError{Path: "operator document", Err: err}
	}
	return &doc, nil
}

// LoadOperatorFile reads the operator document at path and resolves the
// operator with the given id.
func LoadOperatorFile(path, id string, topo *topology.Topology) (*operator.Operator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open operator document: %w", err)
	}
	defer f.Close()
	return LoadOperator(f, id, topo)
}

// LoadOperator resolves the operator with the given id against topo.
func LoadOperator(r io.Reader, id string, topo *topology.Topology) (*operator.Operator, error) {
	doc, err := decodeOperators(r)
	if err != nil {
		return nil, err
	}
	regions, ok := doc.get(id)
	if !ok {
		return nil, &topology.NotFoundError{Kind: "operator", Name: id}
	}
	return resolveOperator(id, regions, topo)
}

// LoadOperatorsFile reads every operator in the document at path.
func LoadOperatorsFile(path string, topo *topology.Topology) ([]*operator.Operator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open operator document: %w", err)
	}
	defer f.Close()
	return LoadOperators(f, topo)
}

// LoadOperators resolves every operator in the document, in document order.
func LoadOperators(r io.Reader, topo *topology.Topology) ([]*operator.Operator, error) {
	doc, err := decodeOperators(r)
	if err != nil {
		return nil, err
	}
	var ops []*operator.Operator
	err = doc.each(func(id string, regions *orderedMap[operatorRegionDoc]) error {
		op, err := resolveOperator(id, regions, topo)
		if err != nil {
			return err
		}
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// validOperatorID reports whether id can name script files inside a dist
// directory.
func validOperatorID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func resolveOperator(id string, regions *orderedMap[operatorRegionDoc], topo *topology.Topology) (*operator.Operator, error) {
	if !validOperatorID(id) {
		return nil, &topology.SchemaError{Path: "operator document", Field: id, Reason: "invalid operator id"}
	}
	op := operator.New(id)
	err := regions.each(func(name string, rd operatorRegionDoc) error {
		region, err := topo.Region(name)
		if err != nil {
			return err
		}
		return resolveRegion(op, region, id+"."+name, rd)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func resolveRegion(op *operator.Operator, region *topology.Region, path string, rd operatorRegionDoc) error {
	for i, ref := range rd.Databases {
		if ref.ID == nil {
			return &topology.SchemaError{Path: fmt.Sprintf("%s.databases[%d]", path, i), Field: "id"}
		}
		db, err := region.Database(*ref.ID)
		if err != nil {
			return err
		}
		op.AddDatabase(db)
	}

	if rd.ECS != nil {
		err := rd.ECS.Clusters.each(func(name string, cd ecsClusterRefDoc) error {
			cluster, err := region.ECSCluster(name)
			if err != nil {
				return err
			}
			for i, ref := range cd.Services {
				if ref.Name == nil {
					return &topology.SchemaError{
						Path:  fmt.Sprintf("%s.ecs.clusters.%s.services[%d]", path, name, i),
						Field: "name",
					}
				}
				svc, err := cluster.Service(*ref.Name)
				if err != nil {
					return err
				}
				op.AddECSService(svc)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if rd.EKS != nil {
		err := rd.EKS.Clusters.each(func(name string, cd eksClusterRefDoc) error {
			cluster, err := region.K8sCluster(name)
			if err != nil {
				return err
			}
			return cd.Namespaces.each(func(nsName string, nd namespaceRefDoc) error {
				ns, err := cluster.Namespace(nsName)
				if err != nil {
					return err
				}
				nsPath := fmt.Sprintf("%s.eks.clusters.%s.namespaces.%s", path, name, nsName)
				for i, ref := range nd.StatefulSets {
					if ref.Name == nil {
						return &topology.SchemaError{Path: fmt.Sprintf("%s.statefulsets[%d]", nsPath, i), Field: "name"}
					}
					sts, err := ns.StatefulSet(*ref.Name)
					if err != nil {
						return err
					}
					op.AddStatefulSet(sts)
				}
				for i, ref := range nd.Deployments {
					if ref.Name == nil {
						return &topology.SchemaError{Path: fmt.Sprintf("%s.deployments[%d]", nsPath, i), Field: "name"}
					}
					dpm, err := ns.Deployment(*ref.Name)
					if err != nil {
						return err
					}
					op.AddDeployment(dpm)
				}
				return nil
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}
