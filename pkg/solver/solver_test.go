package solver

import (
	"context"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "e" + strconv.Itoa(i)
	}
	return out
}

func bounds(entities []string, canvas layout.Canvas) []layout.Constraint {
	canvas = canvas.WithDefaults()
	x0, y0, x1, y1 := canvas.Inner()
	var out []layout.Constraint
	for _, id := range entities {
		out = append(out, layout.Constraint{
			Type:     layout.TypeBounds,
			Objects:  []string{id},
			Params:   map[string]any{layout.ParamXMin: x0, layout.ParamYMin: y0, layout.ParamXMax: x1, layout.ParamYMax: y1},
			Priority: layout.PriorityRequired,
		})
	}
	return out
}

func hasSatisfied(sol Solution, t layout.Type) bool {
	for _, c := range sol.Satisfied {
		if c.Type == t {
			return true
		}
	}
	return false
}

func TestKind(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("quantum").Valid() {
		t.Error("unknown kind should be invalid")
	}
	if KindHeuristic.Advanced() || KindFallback.Advanced() {
		t.Error("heuristic and fallback are not advanced")
	}
	if !KindHybrid.Advanced() || !KindGeometry.Advanced() {
		t.Error("hybrid and geometry are advanced")
	}
}

func TestGrid(t *testing.T) {
	canvas := layout.DefaultCanvas()
	pos := Grid(ids(9), canvas)
	if len(pos) != 9 {
		t.Fatalf("Grid() placed %d, want 9", len(pos))
	}
	// 700 inner width fits 7 columns at 100 spacing.
	if pos["e0"] != (layout.Point{X: 100, Y: 100}) {
		t.Errorf("e0 = %v", pos["e0"])
	}
	if pos["e7"] != (layout.Point{X: 100, Y: 200}) {
		t.Errorf("e7 = %v, want start of second row", pos["e7"])
	}
	again := Grid(ids(9), canvas)
	for k, v := range pos {
		if again[k] != v {
			t.Fatalf("Grid() not deterministic for %s", k)
		}
	}
}

func TestFallbackNeverFails(t *testing.T) {
	f := NewFallback()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, n := range []int{0, 1, 50} {
		sol, err := f.TrySolve(ctx, Problem{Entities: ids(n)})
		if err != nil {
			t.Fatalf("Fallback failed with %d entities: %v", n, err)
		}
		if len(sol.Positions) != n || sol.Advanced {
			t.Errorf("n=%d: positions=%d advanced=%v", n, len(sol.Positions), sol.Advanced)
		}
	}
}

func TestHeuristic(t *testing.T) {
	canvas := layout.DefaultCanvas()
	ents := ids(5)
	cs := append(bounds(ents, canvas),
		layout.Constraint{Type: layout.TypeAlignment, Objects: []string{"e0", "e3", "e4"}, Params: map[string]any{layout.ParamAxis: layout.AxisHorizontal}},
		layout.Constraint{Type: layout.TypeFixedPosition, Objects: []string{"e1"}, Params: map[string]any{layout.ParamX: 400.0, layout.ParamY: 500.0}},
	)
	sol, err := NewHeuristic().TrySolve(context.Background(), Problem{Entities: ents, Constraints: cs, Canvas: canvas})
	if err != nil {
		t.Fatalf("TrySolve: %v", err)
	}
	if sol.Advanced {
		t.Error("heuristic is not advanced")
	}
	if !hasSatisfied(sol, layout.TypeAlignment) {
		t.Errorf("alignment not satisfied: %v", sol.Positions)
	}
	if !hasSatisfied(sol, layout.TypeFixedPosition) {
		t.Errorf("fixed position not satisfied: %v", sol.Positions["e1"])
	}
	if len(Satisfied(bounds(ents, canvas), sol.Positions)) != 5 {
		t.Error("heuristic placed entities outside the canvas")
	}

	_, err = NewHeuristic().TrySolve(context.Background(), Problem{})
	if !errors.Is(err, errors.ErrCodeNoPositions) {
		t.Errorf("empty problem error = %v", err)
	}
}

func TestCheck(t *testing.T) {
	pos := layout.Positions{
		"a": {X: 0, Y: 0},
		"b": {X: 100, Y: 0},
		"c": {X: 200, Y: 0},
	}
	tests := []struct {
		name string
		c    layout.Constraint
		want bool
	}{
		{"DistanceHit", layout.Constraint{Type: layout.TypeDistance, Objects: []string{"a", "b"}, Params: map[string]any{layout.ParamTarget: 100.0}}, true},
		{"DistanceMiss", layout.Constraint{Type: layout.TypeDistance, Objects: []string{"a", "c"}, Params: map[string]any{layout.ParamTarget: 100.0}}, false},
		{"MinDistance", layout.Constraint{Type: layout.TypeMinDistance, Objects: []string{"a", "b", "c"}, Params: map[string]any{layout.ParamMin: 80.0}}, true},
		{"MinDistanceMiss", layout.Constraint{Type: layout.TypeMinDistance, Objects: []string{"a", "c"}, Params: map[string]any{layout.ParamMin: 250.0}}, false},
		{"MaxDistance", layout.Constraint{Type: layout.TypeMaxDistance, Objects: []string{"a", "b"}, Params: map[string]any{layout.ParamMax: 150.0}}, true},
		{"AlignedHorizontal", layout.Constraint{Type: layout.TypeAlignment, Objects: []string{"a", "b", "c"}}, true},
		{"NotAlignedVertical", layout.Constraint{Type: layout.TypeAlignment, Objects: []string{"a", "b"}, Params: map[string]any{layout.ParamAxis: layout.AxisVertical}}, false},
		{"NoOverlap", layout.Constraint{Type: layout.TypeNoOverlap, Objects: []string{"a", "b", "c"}, Params: map[string]any{layout.ParamMinMargin: 10.0}}, true},
		{"EqualSpacing", layout.Constraint{Type: layout.TypeEqualSpacing, Objects: []string{"a", "b", "c"}}, true},
		{"BoundsMiss", layout.Constraint{Type: layout.TypeBounds, Objects: []string{"c"}, Params: map[string]any{layout.ParamXMax: 150.0}}, false},
		{"MissingObject", layout.Constraint{Type: layout.TypeClosedLoop, Objects: []string{"a", "zz"}}, false},
		{"ClosedLoopPlaced", layout.Constraint{Type: layout.TypeClosedLoop, Objects: []string{"a", "b", "c"}}, true},
		{"Empty", layout.Constraint{Type: layout.TypeBounds}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Check(tt.c, pos); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSMT(t *testing.T) {
	canvas := layout.DefaultCanvas()
	ents := ids(4)
	cs := append(bounds(ents, canvas),
		layout.Constraint{Type: layout.TypeAlignment, Objects: []string{"e0", "e1"}, Priority: layout.PriorityHigh},
		layout.Constraint{Type: layout.TypeMinDistance, Objects: []string{"e2", "e3"}, Params: map[string]any{layout.ParamMin: 200.0}, Priority: layout.PriorityHigh},
	)
	sol, err := NewSMT().TrySolve(context.Background(), Problem{Entities: ents, Constraints: cs, Canvas: canvas})
	if err != nil {
		t.Fatalf("TrySolve: %v", err)
	}
	if !sol.Advanced {
		t.Error("smt is advanced")
	}
	if len(sol.Positions) != 4 {
		t.Fatalf("positions = %v", sol.Positions)
	}
	if !hasSatisfied(sol, layout.TypeAlignment) || !hasSatisfied(sol, layout.TypeMinDistance) {
		t.Errorf("soft constraints not satisfied: %v", sol.Positions)
	}
	seen := map[layout.Point]bool{}
	for _, p := range sol.Positions {
		if seen[p] {
			t.Fatalf("two entities share a cell: %v", sol.Positions)
		}
		seen[p] = true
	}
}

func TestSMTRelaxesSoftConstraints(t *testing.T) {
	canvas := layout.DefaultCanvas()
	ents := ids(2)
	cs := append(bounds(ents, canvas),
		// Unreachable on an 800x600 canvas.
		layout.Constraint{Type: layout.TypeMinDistance, Objects: []string{"e0", "e1"}, Params: map[string]any{layout.ParamMin: 5000.0}, Priority: layout.PriorityLow},
	)
	sol, err := NewSMT().TrySolve(context.Background(), Problem{Entities: ents, Constraints: cs, Canvas: canvas})
	if err != nil {
		t.Fatalf("soft constraint should be relaxed, got %v", err)
	}
	if hasSatisfied(sol, layout.TypeMinDistance) {
		t.Error("impossible constraint reported as satisfied")
	}
}

func TestSMTRequiredUnsat(t *testing.T) {
	cs := []layout.Constraint{{
		Type: layout.TypeMinDistance, Objects: []string{"e0", "e1"},
		Params: map[string]any{layout.ParamMin: 5000.0}, Priority: layout.PriorityRequired,
	}}
	_, err := NewSMT().TrySolve(context.Background(), Problem{Entities: ids(2), Constraints: cs})
	if !errors.Is(err, errors.ErrCodeSolverFailed) {
		t.Errorf("error = %v, want SOLVER_FAILED", err)
	}
}

func TestSMTRequiredUnsatTinyCanvas(t *testing.T) {
	canvas := layout.Canvas{Width: 22, Height: 22, Margin: 10}
	ents := ids(2)
	cs := append(bounds(ents, canvas), layout.Constraint{
		Type: layout.TypeNoOverlap, Objects: ents,
		Params: map[string]any{layout.ParamMinMargin: 40.0}, Priority: layout.PriorityRequired,
	})
	_, err := NewSMT().TrySolve(context.Background(), Problem{Entities: ents, Constraints: cs, Canvas: canvas})
	if !errors.Is(err, errors.ErrCodeSolverFailed) {
		t.Errorf("error = %v, want SOLVER_FAILED", err)
	}
}

func TestSMTHonorsContext(t *testing.T) {
	canvas := layout.Canvas{Width: 60, Height: 60, Margin: 10}
	ents := ids(20)
	cs := append(bounds(ents, canvas), layout.Constraint{
		Type: layout.TypeNoOverlap, Objects: ents,
		Params: map[string]any{layout.ParamMinMargin: 30.0}, Priority: layout.PriorityRequired,
	})
	p := Problem{Entities: ents, Constraints: cs, Canvas: canvas}

	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"already canceled", 0},
		{"deadline during search", 50 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()
			start := time.Now()
			_, err := NewSMT().TrySolve(ctx, p)
			if !errors.Is(err, errors.ErrCodeSolverFailed) {
				t.Errorf("error = %v, want SOLVER_FAILED", err)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Errorf("TrySolve returned %v after the deadline", elapsed)
			}
		})
	}
}

func TestSMTTooLarge(t *testing.T) {
	_, err := NewSMT().TrySolve(context.Background(), Problem{Entities: ids(SMTMaxEntities + 1)})
	if !errors.Is(err, errors.ErrCodeSolverFailed) {
		t.Errorf("error = %v, want SOLVER_FAILED", err)
	}
}

func TestSymbolic(t *testing.T) {
	canvas := layout.DefaultCanvas()
	ents := ids(3)
	cs := append(bounds(ents, canvas),
		layout.Constraint{Type: layout.TypeDistance, Objects: []string{"e0", "e1"}, Params: map[string]any{layout.ParamTarget: 100.0}, Priority: layout.PriorityHigh},
		layout.Constraint{Type: layout.TypeDistance, Objects: []string{"e1", "e2"}, Params: map[string]any{layout.ParamTarget: 100.0}, Priority: layout.PriorityHigh},
	)
	sol, err := NewSymbolic().TrySolve(context.Background(), Problem{Entities: ents, Constraints: cs, Canvas: canvas})
	if err != nil {
		t.Fatalf("TrySolve: %v", err)
	}
	if !sol.Advanced {
		t.Error("symbolic is advanced")
	}
	for _, c := range cs[3:] {
		d := sol.Positions[c.Objects[0]].Dist(sol.Positions[c.Objects[1]])
		if math.Abs(d-100) > 25 {
			t.Errorf("distance %v-%v = %.1f, want ≈100", c.Objects[0], c.Objects[1], d)
		}
	}
	if len(Satisfied(bounds(ents, canvas), sol.Positions)) != 3 {
		t.Error("symbolic placed entities outside the canvas")
	}
}

func TestHybrid(t *testing.T) {
	canvas := layout.DefaultCanvas()
	ents := ids(4)
	cs := append(bounds(ents, canvas),
		layout.Constraint{Type: layout.TypeDistance, Objects: []string{"e0", "e1"}, Params: map[string]any{layout.ParamTarget: 120.0}, Priority: layout.PriorityHigh},
	)
	h := NewHybrid(NewSMT(), NewSymbolic())
	if !h.Available() {
		t.Fatal("hybrid should be available")
	}
	sol, err := h.TrySolve(context.Background(), Problem{Entities: ents, Constraints: cs, Canvas: canvas})
	if err != nil {
		t.Fatalf("TrySolve: %v", err)
	}
	if len(sol.Positions) != 4 || !sol.Advanced {
		t.Errorf("solution = %+v", sol)
	}

	if NewHybrid(nil, nil).Available() {
		t.Error("hybrid without parts should be unavailable")
	}
}

func TestToDOT(t *testing.T) {
	p := Problem{
		Entities: []string{"battery \"main\"", "r1"},
		Constraints: []layout.Constraint{
			{Type: layout.TypeDistance, Objects: []string{"battery \"main\"", "r1"}, Params: map[string]any{layout.ParamTarget: 144.0}},
			{Type: layout.TypeFixedPosition, Objects: []string{"r1"}, Params: map[string]any{layout.ParamX: 10.0, layout.ParamY: 20.0}},
			{Type: layout.TypeDistance, Objects: []string{"r1", "ghost"}},
		},
	}
	dot := ToDOT(p)
	for _, want := range []string{"layout=neato", "n0 -- n1 [len=2.000]", `pos="10.00,-20.00!"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "ghost") {
		t.Error("edge to unknown entity should be skipped")
	}
}

func TestParsePositions(t *testing.T) {
	out := []byte(`graph G {
	graph [bb="0,0,200,100"];
	node [label="", shape=circle];
	n0	[height=0.4,
		pos="10,90",
		width=0.4];
	n1	[pos="190,10!", width=0.4];
	n0 -- n1	[len=2.000,
		pos="20,80 180,20"];
}
`)
	pts, err := parsePositions(out, 2)
	if err != nil {
		t.Fatalf("parsePositions: %v", err)
	}
	if pts[0] != (layout.Point{X: 10, Y: 90}) || pts[1] != (layout.Point{X: 190, Y: 10}) {
		t.Errorf("positions = %v", pts)
	}
	if _, err := parsePositions(out, 3); err == nil {
		t.Error("missing node should fail")
	}
}

func TestFitToCanvas(t *testing.T) {
	canvas := layout.DefaultCanvas()
	pts := fitToCanvas([]layout.Point{{X: 0, Y: 0}, {X: 2000, Y: 1000}}, canvas)
	x0, y0, x1, y1 := canvas.Inner()
	for _, p := range pts {
		if p.X < x0-1e-9 || p.X > x1+1e-9 || p.Y < y0-1e-9 || p.Y > y1+1e-9 {
			t.Errorf("point %v outside inner canvas", p)
		}
	}
	if pts[1].Y >= pts[0].Y {
		t.Error("y axis should be flipped")
	}

	single := fitToCanvas([]layout.Point{{X: 5, Y: 5}}, canvas)
	if single[0] != (layout.Point{X: 400, Y: 300}) {
		t.Errorf("single point = %v, want canvas centre", single[0])
	}
}

func TestGeometry(t *testing.T) {
	g := NewGeometry(context.Background())
	if !g.Available() {
		t.Skip("graphviz runtime unavailable")
	}
	canvas := layout.DefaultCanvas()
	ents := ids(3)
	cs := append(bounds(ents, canvas),
		layout.Constraint{Type: layout.TypeDistance, Objects: []string{"e0", "e1"}, Params: map[string]any{layout.ParamTarget: 100.0}, Priority: layout.PriorityHigh},
	)
	sol, err := g.TrySolve(context.Background(), Problem{Entities: ents, Constraints: cs, Canvas: canvas})
	if err != nil {
		t.Fatalf("TrySolve: %v", err)
	}
	if len(sol.Positions) != 3 || !sol.Advanced {
		t.Errorf("solution = %+v", sol)
	}
}

func TestRegistryHybridSkipsDisabledSMT(t *testing.T) {
	r := NewRegistry(context.Background(), Options{Disabled: []Kind{KindSMT}})
	if !r.Available(KindHybrid) {
		t.Fatal("hybrid should stay available through its symbolic part")
	}
	b, _ := r.Get(KindHybrid)
	h := b.(*Hybrid)
	if h.SMT != nil {
		t.Error("hybrid should not run smt when smt is disabled")
	}
	if h.Symbolic == nil {
		t.Error("hybrid lost its symbolic part")
	}

	canvas := layout.DefaultCanvas()
	ents := ids(3)
	sol, err := h.TrySolve(context.Background(), Problem{Entities: ents, Constraints: bounds(ents, canvas), Canvas: canvas})
	if err != nil {
		t.Fatalf("TrySolve: %v", err)
	}
	if len(sol.Positions) != 3 {
		t.Errorf("positions = %v", sol.Positions)
	}
}

func TestGeometryUnavailable(t *testing.T) {
	_, err := (&Geometry{}).TrySolve(context.Background(), Problem{Entities: ids(1)})
	if !errors.Is(err, errors.ErrCodeSolverUnavailable) {
		t.Errorf("error = %v, want SOLVER_UNAVAILABLE", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(context.Background(), Options{Disabled: []Kind{KindSMT, KindSymbolic, KindHeuristic}})
	if r.Available(KindSMT) || r.Available(KindSymbolic) {
		t.Error("disabled back-ends should be unavailable")
	}
	if r.Available(KindHybrid) {
		t.Error("hybrid should follow its disabled parts")
	}
	if !r.Available(KindHeuristic) || !r.Available(KindFallback) {
		t.Error("heuristic and fallback are always available")
	}
	if _, ok := r.Get(KindGeometry); !ok {
		t.Error("geometry should be registered even if unavailable")
	}

	avail := r.Availability()
	avail[KindSMT] = true
	if r.Available(KindSMT) {
		t.Error("Availability() should return a copy")
	}

	b, _ := r.Get(KindHybrid)
	if h := b.(*Hybrid); h.SMT != nil || h.Symbolic != nil {
		t.Errorf("hybrid kept disabled parts: smt=%v symbolic=%v", h.SMT != nil, h.Symbolic != nil)
	}

	bare := NewRegistryWith(Options{})
	if !bare.Available(KindHeuristic) || !bare.Available(KindFallback) || bare.AnyAdvanced() {
		t.Errorf("bare registry availability = %v", bare.Availability())
	}
}
