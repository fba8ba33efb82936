package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
)

// orderedMap decodes a YAML mapping while keeping the document order of its
// keys, so regions, clusters and namespaces are visited as written. A key
// repeated within one mapping is a DuplicateError.
type orderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func (m *orderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	m.keys = nil
	m.values = make(map[string]V)
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		if _, dup := m.values[key]; dup {
			return &topology.DuplicateError{
				Kind:   "key",
				Name:   key,
				Parent: fmt.Sprintf("mapping at line %d", node.Line),
			}
		}
		var value V
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		m.keys = append(m.keys, key)
		m.values[key] = value
	}
	return nil
}

// each calls fn for every entry in document order, stopping at the first error.
func (m *orderedMap[V]) each(fn func(key string, value V) error) error {
	if m == nil {
		return nil
	}
	for _, key := range m.keys {
		if err := fn(key, m.values[key]); err != nil {
			return err
		}
	}
	return nil
}

func (m *orderedMap[V]) get(key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}
