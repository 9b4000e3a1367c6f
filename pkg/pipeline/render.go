package pipeline

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/stemplan/pkg/errors"
	stio "github.com/matzehuels/stemplan/pkg/io"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/report"
)

// Render encodes the plan and, when present, the orchestration result in
// the requested formats. JSON and YAML carry the result document when
// there is one and the plan otherwise.
func Render(pl *plan.Plan, run *orchestrator.Result, formats []string) (map[string][]byte, error) {
	if pl == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to render")
	}
	var doc any = pl
	if run != nil {
		doc = run
	}

	artifacts := make(map[string][]byte, len(formats))
	var md []byte
	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON, FormatYAML:
			var buf bytes.Buffer
			err = stio.Write(&buf, stio.Format(format), doc)
			data = buf.Bytes()
		case FormatMarkdown:
			if md == nil {
				md = report.Markdown(pl, run)
			}
			data = md
		case FormatHTML:
			if md == nil {
				md = report.Markdown(pl, run)
			}
			data, err = report.HTML(md, title(pl))
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func title(pl *plan.Plan) string {
	if pl.Domain == "" {
		return "Layout plan"
	}
	return "Layout plan: " + pl.Domain
}
