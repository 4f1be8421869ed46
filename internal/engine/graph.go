package engine

import (
	"fmt"

	"larder/internal/store"
)

// wouldCreateCycle reports whether adding the edge recipe → component would
// make the composition graph cyclic: true iff recipe is reachable from
// component over the existing edges (the direct self-reference included).
func wouldCreateCycle(s *store.Store, recipeID, componentID int64) (bool, error) {
	if recipeID == componentID {
		return true, nil
	}

	edges, err := s.ComponentEdges()
	if err != nil {
		return false, err
	}

	children := make(map[int64][]int64)
	for _, e := range edges {
		children[e.RecipeID] = append(children[e.RecipeID], e.ComponentID)
	}

	// BFS from the proposed component.
	visited := map[int64]bool{componentID: true}
	frontier := []int64{componentID}
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		for _, next := range children[node] {
			if next == recipeID {
				return true, nil
			}
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return false, nil
}

// AddComponent adds recipe → component with a servings weight, rejecting the
// edge atomically if it would create a cycle, then recalculates the recipe
// and everything downstream.
func (e *Engine) AddComponent(recipeID, componentID int64, servings float64) (*store.RecipeComponent, CascadeResult, error) {
	if servings <= 0 {
		return nil, CascadeResult{}, fmt.Errorf("%w: servings must be positive, got %g", ErrValidation, servings)
	}

	edge := &store.RecipeComponent{RecipeID: recipeID, ComponentID: componentID, Servings: servings}
	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		if err := e.requireRecipe(s, recipeID); err != nil {
			return err
		}
		if err := e.requireRecipe(s, componentID); err != nil {
			return err
		}

		cyclic, err := wouldCreateCycle(s, recipeID, componentID)
		if err != nil {
			return err
		}
		if cyclic {
			return fmt.Errorf("recipe %d -> %d: %w", recipeID, componentID, ErrCycle)
		}

		if err := s.AddComponent(edge); err != nil {
			return err
		}
		res, err = e.cascade(s, nil, []int64{recipeID})
		return err
	})
	if err != nil {
		return nil, CascadeResult{}, err
	}
	return edge, res, nil
}

// RemoveComponent deletes a component edge and recalculates the parent
// recipe and everything downstream.
func (e *Engine) RemoveComponent(edgeID int64) (CascadeResult, error) {
	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		edge, err := s.GetComponent(edgeID)
		if err != nil {
			return err
		}
		if edge == nil {
			return fmt.Errorf("component edge %d: %w", edgeID, ErrNotFound)
		}
		if err := s.DeleteComponent(edgeID); err != nil {
			return err
		}
		res, err = e.cascade(s, nil, []int64{edge.RecipeID})
		return err
	})
	return res, err
}

// TransitiveComponents returns every recipe reachable from recipeID through
// component edges, for usage display. Not the recalculation order; the
// cascade derives its own ordering.
func (e *Engine) TransitiveComponents(recipeID int64) ([]int64, error) {
	s := e.DB.Store()
	if err := e.requireRecipe(s, recipeID); err != nil {
		return nil, err
	}

	edges, err := s.ComponentEdges()
	if err != nil {
		return nil, err
	}

	children := make(map[int64][]int64)
	for _, e := range edges {
		children[e.RecipeID] = append(children[e.RecipeID], e.ComponentID)
	}

	visited := map[int64]bool{recipeID: true}
	frontier := []int64{recipeID}
	var closure []int64
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		for _, next := range children[node] {
			if !visited[next] {
				visited[next] = true
				closure = append(closure, next)
				frontier = append(frontier, next)
			}
		}
	}
	return closure, nil
}
