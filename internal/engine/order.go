package engine

import (
	"sort"

	"larder/internal/store"
)

// orderRecipes topologically sorts a set of stale recipes using Kahn's
// algorithm over the composition edges restricted to the set. A recipe
// appears only after every component it depends on within the set, so each
// parent is recalculated from just-updated children.
//
// If extraction stalls before draining the set the stored graph has a cycle,
// which edge insertion is supposed to make impossible; that is a hard
// ErrGraphIntegrity, never an arbitrary residual order.
func orderRecipes(ids []int64, edges []store.RecipeComponent) ([]int64, error) {
	inSet := make(map[int64]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	// indegree counts in-set components a recipe still waits on;
	// parents[c] lists in-set recipes that consume c.
	indegree := make(map[int64]int, len(ids))
	parents := make(map[int64][]int64)
	for _, id := range ids {
		indegree[id] = 0
	}
	for _, e := range edges {
		if inSet[e.RecipeID] && inSet[e.ComponentID] {
			indegree[e.RecipeID]++
			parents[e.ComponentID] = append(parents[e.ComponentID], e.RecipeID)
		}
	}

	// Seed with recipes that depend on nothing in the set, sorted for a
	// deterministic order.
	var ready []int64
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	ordered := make([]int64, 0, len(ids))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, id)

		for _, parent := range parents[id] {
			indegree[parent]--
			if indegree[parent] == 0 {
				ready = append(ready, parent)
			}
		}
	}

	if len(ordered) != len(ids) {
		return nil, ErrGraphIntegrity
	}
	return ordered, nil
}
