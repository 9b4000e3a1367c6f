package planner

import (
	"context"
	"testing"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
)

func TestBuildSingleObjectIsHeuristic(t *testing.T) {
	spec := &problem.Spec{Domain: "unknown", Objects: []problem.Object{{ID: "thing"}}}

	p, err := New(layout.Canvas{}, nil).Build(context.Background(), spec)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.Complexity < 0.05 || p.Complexity > 0.07 {
		t.Errorf("complexity = %v, want ≈0.05", p.Complexity)
	}
	if p.Strategy != plan.StrategyHeuristic {
		t.Errorf("strategy = %s, want HEURISTIC", p.Strategy)
	}
	if len(p.Subproblems) != 1 || p.Subproblems[0].ID != MainSubproblemID {
		t.Errorf("subproblems = %+v", p.Subproblems)
	}
	if countType(p.Constraints, layout.TypeNoOverlap) != 0 {
		t.Error("single object should have no no_overlap constraint")
	}
}

func TestBuildConnectedMechanicsIsSymbolic(t *testing.T) {
	spec := &problem.Spec{
		Domain: "mechanics",
		Objects: []problem.Object{
			{ID: "a", Type: "block"}, {ID: "b", Type: "pulley"}, {ID: "c", Type: "block"}, {ID: "d", Type: "rope"},
		},
		Relationships: []problem.Relationship{
			{Subject: "a", Type: "connected", Target: "b"},
			{Subject: "b", Type: "connected", Target: "c"},
			{Subject: "c", Type: "connected", Target: "d"},
		},
	}

	p, err := New(layout.DefaultCanvas(), nil).Build(context.Background(), spec)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if p.Complexity < 0.15 || p.Complexity >= 0.60 {
		t.Fatalf("complexity = %v, want in [0.15, 0.60)", p.Complexity)
	}
	if !approx(p.Complexity, 0.25) {
		t.Errorf("complexity = %v, want 0.25", p.Complexity)
	}
	if len(p.Subproblems) != 1 {
		t.Errorf("subproblems = %d, want 1 connected component", len(p.Subproblems))
	}
	if p.Strategy != plan.StrategySymbolicPhysics {
		t.Errorf("strategy = %s, want SYMBOLIC_PHYSICS", p.Strategy)
	}
	if got := countType(p.Constraints, layout.TypeDistance); got != 3 {
		t.Errorf("distance constraints = %d, want 3", got)
	}
	if p.StyleHints["b"].Symbol != "pulley" {
		t.Errorf("pulley style = %+v", p.StyleHints["b"])
	}
}

func TestBuildLog(t *testing.T) {
	spec := &problem.Spec{Objects: objects(3), Geometry: &problem.Geometry{Shape: "linear"}}
	p, err := New(layout.DefaultCanvas(), nil).Build(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{StepValidate, StepComplexity, StepDecomposition, StepStrategy, StepConstraints, StepStyles}
	got := p.StepNames()
	if len(got) != len(want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, got[i], want[i])
		}
	}
	st, _ := p.LastStep(StepStrategy)
	if st.Payload["explanation"] != Explain(spec, p.Complexity) {
		t.Errorf("strategy step explanation mismatch: %v", st.Payload)
	}
	if p.LayoutHints[plan.HintShape] != "linear" {
		t.Errorf("shape hint = %v", p.LayoutHints[plan.HintShape])
	}
	if len(p.Entities) != 3 {
		t.Errorf("entities = %v", p.Entities)
	}
}

func TestBuildErrors(t *testing.T) {
	pl := New(layout.DefaultCanvas(), nil)

	if _, err := pl.Build(context.Background(), &problem.Spec{}); !errors.Is(err, errors.ErrCodeEmptySpec) {
		t.Errorf("empty spec error = %v, want EMPTY_SPEC", err)
	}
	if _, err := pl.Build(context.Background(), nil); !errors.Is(err, errors.ErrCodeEmptySpec) {
		t.Errorf("nil spec error = %v, want EMPTY_SPEC", err)
	}
	dup := &problem.Spec{Objects: []problem.Object{{ID: "a"}, {ID: "a"}}}
	if _, err := pl.Build(context.Background(), dup); !errors.Is(err, errors.ErrCodeInvalidSpec) {
		t.Errorf("duplicate ids error = %v, want INVALID_SPEC", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pl.Build(ctx, &problem.Spec{Objects: objects(1)}); err == nil {
		t.Error("cancelled context should fail")
	}
}
