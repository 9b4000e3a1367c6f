package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// encode writes v to w as JSON or YAML. TOML output is not supported.
func encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	}
	return errors.New(errors.ErrCodeInvalidFormat, "cannot write %s", format)
}

// Write encodes any document (spec, graph, plan or result) to w.
func Write(w io.Writer, format Format, v any) error {
	return encode(w, format, v)
}

// WriteSpec encodes a spec.
func WriteSpec(w io.Writer, format Format, spec *problem.Spec) error {
	return encode(w, format, spec)
}

// WritePlan encodes a plan. The output can be re-read with ReadPlan.
func WritePlan(w io.Writer, format Format, pl *plan.Plan) error {
	return encode(w, format, pl)
}

// Save writes v to path, choosing the format from its extension.
func Save(path string, v any) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encode(f, format, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
