package pipeline

import (
	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/graph"
	stio "github.com/matzehuels/stemplan/pkg/io"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// Input is a loaded spec or graph. Exactly one field is set.
type Input struct {
	Spec  *problem.Spec
	Graph *graph.Graph
}

// Source returns SourceSpec or SourceGraph.
func (in Input) Source() string {
	if in.Graph != nil {
		return SourceGraph
	}
	return SourceSpec
}

// Hash returns the content hash used in plan cache keys.
func (in Input) Hash() (string, error) {
	if in.Graph != nil {
		return cache.HashJSON(in.Graph)
	}
	return cache.HashJSON(in.Spec)
}

// Load resolves the pipeline input from validated options, reading Path
// when no spec or graph is supplied.
func Load(opts Options) (Input, error) {
	switch {
	case opts.Spec != nil:
		return Input{Spec: opts.Spec}, nil
	case opts.Graph != nil:
		return Input{Graph: opts.Graph}, nil
	case opts.Path == "":
		return Input{}, errors.New(errors.ErrCodeInvalidInput, "no input")
	case opts.Source == SourceGraph:
		g, err := stio.LoadGraph(opts.Path)
		if err != nil {
			return Input{}, err
		}
		return Input{Graph: g}, nil
	default:
		spec, err := stio.LoadSpec(opts.Path)
		if err != nil {
			return Input{}, err
		}
		return Input{Spec: spec}, nil
	}
}
