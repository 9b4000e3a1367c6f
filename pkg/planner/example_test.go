package planner_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/planner"
	"github.com/matzehuels/stemplan/pkg/problem"
)

func ExampleAssess() {
	spec := &problem.Spec{
		Domain:  "mechanics",
		Objects: []problem.Object{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Relationships: []problem.Relationship{
			{Subject: "a", Type: "connected", Target: "b"},
			{Subject: "b", Type: "connected", Target: "c"},
			{Subject: "c", Type: "connected", Target: "d"},
		},
	}
	c := planner.Assess(spec)
	fmt.Printf("complexity: %.2f\n", c)
	fmt.Println("strategy:", planner.Select(spec, c))
	// Output:
	// complexity: 0.25
	// strategy: SYMBOLIC_PHYSICS
}

func ExamplePlanner_Build() {
	spec := &problem.Spec{
		Domain: "current_electricity",
		Objects: []problem.Object{
			{ID: "bat", Type: "battery"},
			{ID: "r1", Type: "resistor"},
		},
		Relationships: []problem.Relationship{
			{Subject: "bat", Type: "connected_to", Target: "r1"},
		},
	}

	p, err := planner.New(layout.DefaultCanvas(), nil).Build(context.Background(), spec)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("strategy:", p.Strategy)
	fmt.Println("constraints:", len(p.Constraints))
	fmt.Println("battery symbol:", p.StyleHints["bat"].Symbol)
	// Output:
	// strategy: CONSTRAINT_BASED
	// constraints: 4
	// battery symbol: battery
}
