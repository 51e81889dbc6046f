// Package resolve checks cross-entity references and orders entities so
// that every belongsTo target precedes the entities referring to it.
package resolve

import (
	"github.com/matthewbaird/turbine/internal/spec"
)

const (
	unvisited uint8 = iota
	visiting
	visited
)

type frame struct {
	node int
	next int // index into the node's edge list
}

// Order returns the entities in dependency order. Ties keep declaration
// order. Self references do not constrain the order and targets outside the
// set are ignored; CheckReferences reports those.
func Order(entities []spec.Entity) ([]spec.Entity, error) {
	edges := dependencyEdges(entities)
	state := make([]uint8, len(entities))
	out := make([]spec.Entity, 0, len(entities))

	for root := range entities {
		if state[root] != unvisited {
			continue
		}
		state[root] = visiting
		stack := []frame{{node: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(edges[top.node]) {
				dep := edges[top.node][top.next]
				top.next++
				switch state[dep] {
				case visiting:
					return nil, &CycleError{Entity: entities[dep].Name, Cycle: cycleNames(entities, stack, dep)}
				case unvisited:
					state[dep] = visiting
					stack = append(stack, frame{node: dep})
				}
				continue
			}
			state[top.node] = visited
			out = append(out, entities[top.node])
			stack = stack[:len(stack)-1]
		}
	}
	return out, nil
}

// OrderNames is Order reduced to entity names.
func OrderNames(entities []spec.Entity) ([]string, error) {
	ordered, err := Order(entities)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.Name
	}
	return names, nil
}

// dependencyEdges lists, per entity, the indexes of its belongsTo targets in
// field declaration order.
func dependencyEdges(entities []spec.Entity) [][]int {
	idx := make(map[string]int, len(entities))
	for i, e := range entities {
		if _, dup := idx[e.Name]; !dup {
			idx[e.Name] = i
		}
	}
	edges := make([][]int, len(entities))
	for i, e := range entities {
		seen := make(map[int]bool)
		for _, f := range e.Fields {
			if !f.IsRelation() || f.Relation.Type != spec.BelongsTo {
				continue
			}
			t, ok := idx[f.Relation.Target]
			if !ok || t == i || seen[t] {
				continue
			}
			seen[t] = true
			edges[i] = append(edges[i], t)
		}
	}
	return edges
}

func cycleNames(entities []spec.Entity, stack []frame, start int) []string {
	var names []string
	for i := len(stack) - 1; i >= 0; i-- {
		names = append([]string{entities[stack[i].node].Name}, names...)
		if stack[i].node == start {
			break
		}
	}
	return names
}
