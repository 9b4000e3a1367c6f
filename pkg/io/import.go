package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/graph"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// decode reads r into v using format.
func decode(r io.Reader, format Format, v any) error {
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(v)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(v)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(v)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", format)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", format)
	}
	return nil
}

// ReadSpec decodes and validates a problem spec.
//
// An empty object list is not a decoding error; the planner reports it as
// EMPTY_SPEC.
func ReadSpec(r io.Reader, format Format) (*problem.Spec, error) {
	var spec problem.Spec
	if err := decode(r, format, &spec); err != nil {
		return nil, err
	}
	if len(spec.Objects) == 0 {
		return &spec, nil
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadSpec reads a spec file, choosing the format from its extension.
func LoadSpec(path string) (*problem.Spec, error) {
	if err := errors.ValidateSpecPath(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSpec(f, format)
}

// ReadGraph decodes and validates a property graph. TOML is not accepted.
func ReadGraph(r io.Reader, format Format) (*graph.Graph, error) {
	if format == FormatTOML {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "graphs cannot be read from toml")
	}
	var g graph.Graph
	if err := decode(r, format, &g); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "invalid graph")
	}
	return &g, nil
}

// LoadGraph reads a graph file, choosing the format from its extension.
func LoadGraph(path string) (*graph.Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraph(f, format)
}

// ReadPlan decodes a plan written by WritePlan.
func ReadPlan(r io.Reader, format Format) (*plan.Plan, error) {
	if format == FormatTOML {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "plans cannot be read from toml")
	}
	var pl plan.Plan
	if err := decode(r, format, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// LoadPlan reads a plan file, choosing the format from its extension.
func LoadPlan(path string) (*plan.Plan, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPlan(f, format)
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
