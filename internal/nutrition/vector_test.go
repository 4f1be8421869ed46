package nutrition

import "testing"

func TestAdd(t *testing.T) {
	a := Vector{Calories: 100, Protein: 10, Sodium: 200}
	b := Vector{Calories: 50, Fat: 5, Sodium: 100}

	got := a.Add(b)
	want := Vector{Calories: 150, Protein: 10, Fat: 5, Sodium: 300}
	if got != want {
		t.Errorf("Add = %+v, want %+v", got, want)
	}

	// Commutes.
	if b.Add(a) != got {
		t.Error("Add is not commutative")
	}

	// Zero is the identity.
	if a.Add(Vector{}) != a {
		t.Error("adding zero changed the vector")
	}
}

func TestScale(t *testing.T) {
	v := Vector{Calories: 190, Protein: 7, Fat: 16, Sodium: 140}

	got := v.Scale(4)
	want := Vector{Calories: 760, Protein: 28, Fat: 64, Sodium: 560}
	if got != want {
		t.Errorf("Scale(4) = %+v, want %+v", got, want)
	}

	if !v.Scale(0).IsZero() {
		t.Error("Scale(0) should be zero")
	}
}

func TestIsZero(t *testing.T) {
	if !(Vector{}).IsZero() {
		t.Error("zero value should be zero")
	}
	if (Vector{Cholesterol: 0.1}).IsZero() {
		t.Error("nonzero cholesterol reported as zero")
	}
}
