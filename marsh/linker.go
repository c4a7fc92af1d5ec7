package marsh

import "fmt"

// Linker resolves a graph of Descriptors, rooted at one entry point, into a
// graph of live Mappers. It walks the graph breadth-first exactly once per
// distinct descriptor (so a descriptor reachable by two different paths, or
// by a RefDescriptor that happens to name an already-visited node, is built
// only once and shared), then closes any cycles by mutating each node's
// children map in place after every node in the graph has a Mapper.
//
// This two-phase "build everything, then wire everything" shape is a direct
// port of vow/marsh/walker.py's Walker.mappers(): node_deps_empty dicts are
// created for every node before any fac.create() call, so a struct that
// refers to itself (directly, or through a RefDescriptor closing a cycle)
// resolves without the builder ever needing a value for a node that is still
// under construction.
type Linker struct {
	registry *Registry
}

// NewLinker returns a Linker resolving RefDescriptor names against registry.
func NewLinker(registry *Registry) *Linker {
	return &Linker{registry: registry}
}

// Link builds the Mapper for root, along with every descriptor reachable
// from it, and returns root's Mapper. It fails if any RefDescriptor names an
// entry absent from the registry.
func (l *Linker) Link(root Descriptor) (Mapper, error) {
	edges := make(map[Descriptor]map[string]Descriptor)
	visited := make(map[Descriptor]bool)
	order := []Descriptor{root}
	visited[root] = true

	for i := 0; i < len(order); i++ {
		node := order[i]
		resolved := make(map[string]Descriptor)
		for name, child := range node.Dependencies() {
			target := child
			if ph, ok := child.(refPlaceholder); ok {
				t, ok := l.registry.Lookup(ph.name)
				if !ok {
					return nil, fmt.Errorf("marsh: unresolved reference %q", ph.name)
				}
				target = t
			}
			resolved[name] = target
			if !visited[target] {
				visited[target] = true
				order = append(order, target)
			}
		}
		edges[node] = resolved
	}

	childrenOf := make(map[Descriptor]map[string]Mapper, len(order))
	for _, node := range order {
		childrenOf[node] = make(map[string]Mapper, len(edges[node]))
	}

	mappers := make(map[Descriptor]Mapper, len(order))
	for _, node := range order {
		m, err := node.Build(childrenOf[node])
		if err != nil {
			return nil, err
		}
		mappers[node] = m
	}

	for _, node := range order {
		for name, target := range edges[node] {
			childrenOf[node][name] = mappers[target]
		}
	}

	return mappers[root], nil
}
