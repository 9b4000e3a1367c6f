// Package report renders a human-readable summary of a plan and, when
// available, the orchestration result that resolved it.
//
// Reports are produced as Markdown and converted to a standalone HTML page
// with goldmark:
//
//	md := report.Markdown(pl, res)
//	page, err := report.HTML(md, "Plan "+pl.ID)
package report

import (
	"bytes"
	"fmt"
	"html"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/plan"
)

// Markdown summarizes pl and, if non-nil, res. When res carries a plan
// with positions, that plan is reported instead of pl.
func Markdown(pl *plan.Plan, res *orchestrator.Result) []byte {
	if res != nil && res.Plan != nil {
		pl = res.Plan
	}
	var b bytes.Buffer
	if pl == nil {
		b.WriteString("# Plan\n\nNo plan.\n")
		return b.Bytes()
	}

	fmt.Fprintf(&b, "# Plan %s\n\n", pl.ID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	row(&b, "Domain", orDash(pl.Domain))
	row(&b, "Strategy", string(pl.Strategy))
	row(&b, "Complexity", fmt.Sprintf("%.2f", pl.Complexity))
	row(&b, "Canvas", fmt.Sprintf("%gx%g (margin %g)", pl.Canvas.Width, pl.Canvas.Height, pl.Canvas.Margin))
	row(&b, "Entities", fmt.Sprintf("%d", len(pl.Entities)))
	row(&b, "Constraints", fmt.Sprintf("%d", len(pl.Constraints)))
	row(&b, "Subproblems", fmt.Sprintf("%d", len(pl.Subproblems)))
	if backend, ok := pl.LayoutHints[plan.HintBackend].(string); ok {
		row(&b, "Placed by", backend)
	}
	b.WriteString("\n")

	if res != nil {
		writeResult(&b, res)
	}

	if len(pl.Constraints) > 0 {
		b.WriteString("## Constraints\n\n| Type | Objects | Priority | Source |\n|---|---|---|---|\n")
		for _, c := range pl.Constraints {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				c.Type, cell(strings.Join(c.Objects, ", ")), c.Priority, orDash(c.Source))
		}
		b.WriteString("\n")
	}

	if len(pl.Positions) > 0 {
		b.WriteString("## Positions\n\n| Entity | X | Y |\n|---|---|---|\n")
		for _, id := range slices.Sorted(maps.Keys(pl.Positions)) {
			p := pl.Positions[id]
			fmt.Fprintf(&b, "| %s | %.1f | %.1f |\n", cell(id), p.X, p.Y)
		}
		b.WriteString("\n")
	}

	if len(pl.Log) > 0 {
		b.WriteString("## Planning log\n\n")
		for i, s := range pl.Log {
			fmt.Fprintf(&b, "%d. **%s**%s\n", i+1, s.Name, payload(s.Payload))
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

func writeResult(b *bytes.Buffer, res *orchestrator.Result) {
	b.WriteString("## Orchestration\n\n")
	status := "succeeded"
	if !res.Success {
		status = "failed"
	}
	fmt.Fprintf(b, "Run `%s` %s with **%s** (primary %s) in %s.", res.ID, status,
		res.Backend, orDash(string(res.Primary())), res.Elapsed.Round(time.Microsecond))
	if res.FallbackUsed {
		b.WriteString(" A fallback back-end was used.")
	}
	b.WriteString("\n\n| # | Back-end | Result | Elapsed | Satisfied |\n|---|---|---|---|---|\n")
	for i, a := range res.Attempts {
		outcome := "ok"
		if !a.Success {
			outcome = "failed: " + cell(a.Error)
		}
		fmt.Fprintf(b, "| %d | %s | %s | %s | %d |\n",
			i+1, a.Backend, outcome, a.Elapsed.Round(time.Microsecond), a.Satisfied)
	}
	b.WriteString("\n")
}

func row(b *bytes.Buffer, k, v string) {
	fmt.Fprintf(b, "| %s | %s |\n", k, cell(v))
}

// cell escapes text for a table cell.
func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// payload formats step payload keys in sorted order.
func payload(p map[string]any) string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p))
	for _, k := range slices.Sorted(maps.Keys(p)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return ": " + strings.Join(parts, ", ")
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML converts Markdown to a standalone HTML page.
func HTML(markdown []byte, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, pageHeader, html.EscapeString(title))
	b.Write(body.Bytes())
	b.WriteString(pageFooter)
	return b.Bytes(), nil
}

const pageHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.25rem 0.6rem; text-align: left; }
th { background: #f4f4f4; }
code { background: #f4f4f4; padding: 0 0.2rem; }
</style>
</head>
<body>
`

const pageFooter = `</body>
</html>
`
