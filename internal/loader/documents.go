package loader

import (
	"github.com/mitchellh/mapstructure"
)

// Resource document (resource.yaml).

type resourceDoc struct {
	Regions *orderedMap[regionDoc] `yaml:"regions"`
}

type regionDoc struct {
	Databases []databaseDoc `yaml:"databases"`
	ECS       *ecsDoc       `yaml:"ecs"`
	EKS       *eksDoc       `yaml:"eks"`
}

type databaseDoc struct {
	ID            *string        `yaml:"id"`
	Type          *string        `yaml:"type"`
	Host          *string        `yaml:"host"`
	Port          *int           `yaml:"port"`
	EngineType    *string        `yaml:"engine_type"`
	EngineVersion *string        `yaml:"engine_version"`
	ClassType     *string        `yaml:"class_type"`
	DBName        *string        `yaml:"dbname"`
	Patch         map[string]any `yaml:"patch"`
}

type ecsDoc struct {
	Clusters *orderedMap[ecsClusterDoc] `yaml:"clusters"`
}

type ecsClusterDoc struct {
	Services []serviceDoc `yaml:"services"`
}

type serviceDoc struct {
	Name         *string        `yaml:"name"`
	DesiredCount *int           `yaml:"desired_count"`
	Patch        map[string]any `yaml:"patch"`
	Properties   map[string]any `yaml:"properties"`
}

type eksDoc struct {
	Clusters *orderedMap[eksClusterDoc] `yaml:"clusters"`
}

type eksClusterDoc struct {
	Namespaces *orderedMap[namespaceDoc] `yaml:"namespaces"`
}

type namespaceDoc struct {
	StatefulSets []workloadDoc `yaml:"statefulsets"`
	Deployments  []workloadDoc `yaml:"deployments"`
}

type workloadDoc struct {
	Name       *string        `yaml:"name"`
	Replicas   *int           `yaml:"replicas"`
	Patch      map[string]any `yaml:"patch"`
	Properties map[string]any `yaml:"properties"`
}

// Allow-listed patch and property fields. Keys outside these structs are
// ignored by the decoder.

type databasePatchDoc struct {
	EngineVersion *string `mapstructure:"engine_version"`
	ClassType     *string `mapstructure:"class_type"`
}

type servicePatchDoc struct {
	DesiredCount *int `mapstructure:"desired_count"`
}

type workloadPatchDoc struct {
	Replicas *int `mapstructure:"replicas"`
}

type propertiesDoc struct {
	RestartAfterUpgrade *bool `mapstructure:"restart_after_upgrade"`
}

// Operator document (operator.yaml): operator id -> region -> references.

type operatorRegionDoc struct {
	Databases []refDoc   `yaml:"databases"`
	ECS       *ecsRefDoc `yaml:"ecs"`
	EKS       *eksRefDoc `yaml:"eks"`
}

type refDoc struct {
	ID   *string `yaml:"id"`
	Name *string `yaml:"name"`
}

type ecsRefDoc struct {
	Clusters *orderedMap[ecsClusterRefDoc] `yaml:"clusters"`
}

type ecsClusterRefDoc struct {
	Services []refDoc `yaml:"services"`
}

type eksRefDoc struct {
	Clusters *orderedMap[eksClusterRefDoc] `yaml:"clusters"`
}

type eksClusterRefDoc struct {
	Namespaces *orderedMap[namespaceRefDoc] `yaml:"namespaces"`
}

type namespaceRefDoc struct {
	StatefulSets []refDoc `yaml:"statefulsets"`
	Deployments  []refDoc `yaml:"deployments"`
}

// decodeAllowed decodes a free-form sub-document into one of the allow-list
// structs above. Values are weakly typed so "true" and "3" are accepted.
func decodeAllowed(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
