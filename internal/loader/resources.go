// Package loader builds a topology from a resource document and resolves
// operators from an operator document against it.
//
// Both loads are all-or-nothing: on any error the partially built topology or
// operator is discarded and only the error is returned. Missing required
// fields are reported as *topology.SchemaError with a dotted document path;
// unresolvable references as *topology.NotFoundError.
package loader

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

// LoadResourcesFile reads a resource document from path.
func LoadResourcesFile(path string) (*topology.Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open resource document: %w", err)
	}
	defer f.Close()
	return LoadResources(f)
}

// LoadResources decodes a resource document and builds the topology it
// describes.
func LoadResources(r io.Reader) (*topology.Topology, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: read resource document: %w", err)
	}

	var doc resourceDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &topology.SchemaError{Path: "resource document", Err: err}
	}
	if doc.Regions == nil {
		return nil, &topology.SchemaError{Path: "resource document", Field: "regions"}
	}

	topo := topology.New()
	err = doc.Regions.each(func(name string, rd regionDoc) error {
		region, err := topo.AddRegion(name)
		if err != nil {
			return err
		}
		return loadRegion(region, "regions."+name, rd)
	})
	if err != nil {
		return nil, err
	}
	return topo, nil
}

func loadRegion(region *topology.Region, path string, rd regionDoc) error {
	for i, dd := range rd.Databases {
		if err := loadDatabase(region, fmt.Sprintf("%s.databases[%d]", path, i), dd); err != nil {
			return err
		}
	}

	if rd.ECS != nil {
		err := rd.ECS.Clusters.each(func(name string, cd ecsClusterDoc) error {
			cluster, err := region.AddECSCluster(name)
			if err != nil {
				return err
			}
			for i, sd := range cd.Services {
				if err := loadService(cluster, fmt.Sprintf("%s.ecs.clusters.%s.services[%d]", path, name, i), sd); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if rd.EKS != nil {
		err := rd.EKS.Clusters.each(func(name string, cd eksClusterDoc) error {
			cluster, err := region.AddK8sCluster(name)
			if err != nil {
				return err
			}
			return cd.Namespaces.each(func(nsName string, nd namespaceDoc) error {
				ns, err := cluster.AddNamespace(nsName)
				if err != nil {
					return err
				}
				nsPath := fmt.Sprintf("%s.eks.clusters.%s.namespaces.%s", path, name, nsName)
				for i, wd := range nd.StatefulSets {
					spec, err := workloadSpec(fmt.Sprintf("%s.statefulsets[%d]", nsPath, i), wd)
					if err != nil {
						return err
					}
					if _, err := ns.AddStatefulSet(spec); err != nil {
						return err
					}
				}
				for i, wd := range nd.Deployments {
					spec, err := workloadSpec(fmt.Sprintf("%s.deployments[%d]", nsPath, i), wd)
					if err != nil {
						return err
					}
					if _, err := ns.AddDeployment(spec); err != nil {
						return err
					}
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

func loadDatabase(region *topology.Region, path string, dd databaseDoc) error {
	switch {
	case dd.ID == nil:
		return &topology.SchemaError{Path: path, Field: "id"}
	case dd.Type == nil:
		return &topology.SchemaError{Path: path, Field: "type"}
	case dd.Host == nil:
		return &topology.SchemaError{Path: path, Field: "host"}
	}

	spec := topology.DatabaseSpec{
		ID:   *dd.ID,
		Type: topology.DatabaseType(*dd.Type),
		Host: *dd.Host,
	}
	if dd.Port != nil {
		spec.Port = topology.Some(*dd.Port)
	}
	if dd.EngineType != nil {
		spec.Engine = topology.EngineType(*dd.EngineType)
	}
	if dd.EngineVersion != nil {
		spec.EngineVersion = *dd.EngineVersion
	}
	if dd.ClassType != nil {
		spec.ClassType = *dd.ClassType
	}
	if dd.DBName != nil {
		spec.DBName = *dd.DBName
	}

	if dd.Patch != nil {
		var pd databasePatchDoc
		if err := decodeAllowed(dd.Patch, &pd); err != nil {
			return &topology.SchemaError{Path: path + ".patch", Err: err}
		}
		patch := &topology.DatabasePatch{}
		if pd.EngineVersion != nil {
			patch.EngineVersion = topology.Some(*pd.EngineVersion)
		}
		if pd.ClassType != nil {
			patch.ClassType = topology.Some(*pd.ClassType)
		}
		spec.Patch = patch
	}

	_, err := region.AddDatabase(spec)
	return err
}

func loadService(cluster *topology.ECSCluster, path string, sd serviceDoc) error {
	switch {
	case sd.Name == nil:
		return &topology.SchemaError{Path: path, Field: "name"}
	case sd.DesiredCount == nil:
		return &topology.SchemaError{Path: path, Field: "desired_count"}
	}

	spec := topology.ECSServiceSpec{
		Name:         *sd.Name,
		DesiredCount: *sd.DesiredCount,
	}
	if sd.Patch != nil {
		var pd servicePatchDoc
		if err := decodeAllowed(sd.Patch, &pd); err != nil {
			return &topology.SchemaError{Path: path + ".patch", Err: err}
		}
		patch := &topology.ECSServicePatch{}
		if pd.DesiredCount != nil {
			patch.DesiredCount = topology.Some(*pd.DesiredCount)
		}
		spec.Patch = patch
	}
	props, err := properties(path, sd.Properties)
	if err != nil {
		return err
	}
	spec.Properties = props

	_, err = cluster.AddService(spec)
	return err
}

func workloadSpec(path string, wd workloadDoc) (topology.WorkloadSpec, error) {
	switch {
	case wd.Name == nil:
		return topology.WorkloadSpec{}, &topology.SchemaError{Path: path, Field: "name"}
	case wd.Replicas == nil:
		return topology.WorkloadSpec{}, &topology.SchemaError{Path: path, Field: "replicas"}
	}

	spec := topology.WorkloadSpec{
		Name:     *wd.Name,
		Replicas: *wd.Replicas,
	}
	if wd.Patch != nil {
		var pd workloadPatchDoc
		if err := decodeAllowed(wd.Patch, &pd); err != nil {
			return topology.WorkloadSpec{}, &topology.SchemaError{Path: path + ".patch", Err: err}
		}
		patch := &topology.ReplicasPatch{}
		if pd.Replicas != nil {
			patch.Replicas = topology.Some(*pd.Replicas)
		}
		spec.Patch = patch
	}
	props, err := properties(path, wd.Properties)
	if err != nil {
		return topology.WorkloadSpec{}, err
	}
	spec.Properties = props
	return spec, nil
}

func properties(path string, raw map[string]any) (topology.Properties, error) {
	var props topology.Properties
	if raw == nil {
		return props, nil
	}
	var pd propertiesDoc
	if err := decodeAllowed(raw, &pd); err != nil {
		return props, &topology.SchemaError{Path: path + ".properties", Err: err}
	}
	if pd.RestartAfterUpgrade != nil {
		props.RestartAfterUpgrade = *pd.RestartAfterUpgrade
	}
	return props, nil
}
