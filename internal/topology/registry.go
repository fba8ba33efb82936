package topology

// registry is an insertion-ordered name index used by every parent entity.
type registry[T any] struct {
	kind  string
	order []string
	items map[string]T
}

func newRegistry[T any](kind string) registry[T] {
	return registry[T]{kind: kind, items: make(map[string]T)}
}

func (r *registry[T]) add(parent, name string, item T) error {
	if _, exists := r.items[name]; exists {
		return &DuplicateError{Kind: r.kind, Name: name, Parent: parent}
	}
	r.order = append(r.order, name)
	r.items[name] = item
	return nil
}

func (r *registry[T]) get(parent, name string) (T, error) {
	item, ok := r.items[name]
	if !ok {
		var zero T
		return zero, &NotFoundError{Kind: r.kind, Name: name, Parent: parent}
	}
	return item, nil
}

func (r *registry[T]) list() []T {
	out := make([]T, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.items[name])
	}
	return out
}

func (r *registry[T]) len() int { return len(r.order) }
