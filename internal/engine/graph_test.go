package engine

import (
	"errors"
	"math/rand"
	"testing"
)

func TestAddComponentRejectsSelfReference(t *testing.T) {
	e := testEngine(t)
	r := mustRecipe(t, e, "Stock", 4)

	_, _, err := e.AddComponent(r.ID, r.ID, 1)
	if !errors.Is(err, ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
}

func TestAddComponentRejectsIndirectCycle(t *testing.T) {
	e := testEngine(t)

	a := mustRecipe(t, e, "A", 1)
	b := mustRecipe(t, e, "B", 1)
	c := mustRecipe(t, e, "C", 1)

	// A consumes B consumes C.
	if _, _, err := e.AddComponent(a.ID, b.ID, 1); err != nil {
		t.Fatalf("AddComponent(a, b): %v", err)
	}
	if _, _, err := e.AddComponent(b.ID, c.ID, 1); err != nil {
		t.Fatalf("AddComponent(b, c): %v", err)
	}

	// Closing the loop from either depth is refused.
	if _, _, err := e.AddComponent(c.ID, a.ID, 1); !errors.Is(err, ErrCycle) {
		t.Errorf("c -> a: err = %v, want ErrCycle", err)
	}
	if _, _, err := e.AddComponent(b.ID, a.ID, 1); !errors.Is(err, ErrCycle) {
		t.Errorf("b -> a: err = %v, want ErrCycle", err)
	}

	// The rejected edges were not persisted.
	edges, err := e.DB.Store().ComponentEdges()
	if err != nil {
		t.Fatalf("ComponentEdges: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("got %d edges, want 2", len(edges))
	}
}

func TestAddComponentDiamondIsNotACycle(t *testing.T) {
	e := testEngine(t)

	top := mustRecipe(t, e, "Meal Prep", 1)
	left := mustRecipe(t, e, "Rice", 4)
	right := mustRecipe(t, e, "Beans", 4)
	base := mustRecipe(t, e, "Sofrito", 8)

	for _, pair := range [][2]int64{
		{top.ID, left.ID}, {top.ID, right.ID}, {left.ID, base.ID}, {right.ID, base.ID},
	} {
		if _, _, err := e.AddComponent(pair[0], pair[1], 1); err != nil {
			t.Fatalf("AddComponent(%d, %d): %v", pair[0], pair[1], err)
		}
	}
}

func TestAddComponentValidation(t *testing.T) {
	e := testEngine(t)
	r := mustRecipe(t, e, "A", 1)

	if _, _, err := e.AddComponent(r.ID, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing component: err = %v, want ErrNotFound", err)
	}
	if _, _, err := e.AddComponent(r.ID, r.ID, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("zero servings: err = %v, want ErrValidation", err)
	}
}

func TestTransitiveComponents(t *testing.T) {
	e := testEngine(t)

	a := mustRecipe(t, e, "A", 1)
	b := mustRecipe(t, e, "B", 1)
	c := mustRecipe(t, e, "C", 1)
	d := mustRecipe(t, e, "D", 1)

	if _, _, err := e.AddComponent(a.ID, b.ID, 1); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if _, _, err := e.AddComponent(b.ID, c.ID, 1); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	// d is unrelated.
	_ = d

	closure, err := e.TransitiveComponents(a.ID)
	if err != nil {
		t.Fatalf("TransitiveComponents: %v", err)
	}
	want := map[int64]bool{b.ID: true, c.ID: true}
	if len(closure) != 2 {
		t.Fatalf("closure = %v, want b and c", closure)
	}
	for _, id := range closure {
		if !want[id] {
			t.Errorf("unexpected id %d in closure %v", id, closure)
		}
	}
}

// TestRandomDAGStaysAcyclic builds a random graph through the engine and
// checks that whatever it accepted still topologically orders.
func TestRandomDAGStaysAcyclic(t *testing.T) {
	e := testEngine(t)
	rng := rand.New(rand.NewSource(1))

	const n = 12
	ids := make([]int64, n)
	for i := range ids {
		r := mustRecipe(t, e, "R", 1)
		ids[i] = r.ID
	}

	tried := make(map[[2]int64]bool)
	for i := 0; i < 60; i++ {
		from := ids[rng.Intn(n)]
		to := ids[rng.Intn(n)]
		if tried[[2]int64{from, to}] {
			continue
		}
		tried[[2]int64{from, to}] = true

		_, _, err := e.AddComponent(from, to, 1)
		if err != nil && !errors.Is(err, ErrCycle) {
			t.Fatalf("AddComponent(%d, %d): %v", from, to, err)
		}
	}

	edges, err := e.DB.Store().ComponentEdges()
	if err != nil {
		t.Fatalf("ComponentEdges: %v", err)
	}
	if _, err := orderRecipes(ids, edges); err != nil {
		t.Errorf("accepted graph does not order: %v", err)
	}
}
