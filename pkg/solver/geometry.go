package solver

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
)

// pointsPerInch converts layout units (points) to Graphviz edge lengths.
const pointsPerInch = 72.0

// Geometry packs entities with Graphviz's neato spring model. Distance
// constraints become edge lengths, fixed positions become pinned nodes, and
// the resulting drawing is fitted into the canvas.
type Geometry struct {
	available bool
}

// NewGeometry creates the Graphviz back-end and probes the embedded runtime
// once.
func NewGeometry(ctx context.Context) *Geometry {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return &Geometry{}
	}
	gv.Close()
	return &Geometry{available: true}
}

// Kind implements Backend.
func (*Geometry) Kind() Kind { return KindGeometry }

// Available implements Backend.
func (g *Geometry) Available() bool { return g.available }

// TrySolve implements Backend.
func (g *Geometry) TrySolve(ctx context.Context, p Problem) (Solution, error) {
	if !g.available {
		return Solution{}, errors.New(errors.ErrCodeSolverUnavailable, "geometry: graphviz runtime unavailable")
	}
	if len(p.Entities) == 0 {
		return Solution{}, errors.New(errors.ErrCodeNoPositions, "geometry: no entities")
	}

	out, err := renderLayout(ctx, ToDOT(p))
	if err != nil {
		return Solution{}, errors.Wrap(errors.ErrCodeSolverFailed, err, "geometry")
	}
	raw, err := parsePositions(out, len(p.Entities))
	if err != nil {
		return Solution{}, errors.Wrap(errors.ErrCodeNoPositions, err, "geometry")
	}

	pos := make(layout.Positions, len(p.Entities))
	fitted := fitToCanvas(raw, p.Canvas)
	for i, id := range p.Entities {
		pos[id] = fitted[i]
	}
	pinFixed(pos, p.Constraints)
	return newSolution(p, pos, true), nil
}

// ToDOT converts a layout problem to an undirected neato graph. Nodes are
// named n0..nk in entity order so that arbitrary ids never need quoting.
func ToDOT(p Problem) string {
	index := make(map[string]int, len(p.Entities))
	for i, id := range p.Entities {
		index[id] = i
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  sep=\"+10\";\n")
	buf.WriteString("  start=42;\n")
	buf.WriteString("  node [shape=circle, width=0.4, fixedsize=true, label=\"\"];\n")
	buf.WriteString("\n")

	fixed := fixedPositions(p.Constraints)
	for i, id := range p.Entities {
		attrs := []string{fmt.Sprintf("tooltip=%q", id)}
		if pt, ok := fixed[id]; ok {
			attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", pt.X, -pt.Y))
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", i, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range p.Constraints {
		if c.Type != layout.TypeDistance || len(c.Objects) < 2 {
			continue
		}
		a, okA := index[c.Objects[0]]
		b, okB := index[c.Objects[1]]
		if !okA || !okB {
			continue
		}
		length := c.Float(layout.ParamTarget, GridSpacing) / pointsPerInch
		fmt.Fprintf(&buf, "  n%d -- n%d [len=%.3f];\n", a, b, length)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fixedPositions(cs []layout.Constraint) map[string]layout.Point {
	out := map[string]layout.Point{}
	for _, c := range cs {
		if c.Type != layout.TypeFixedPosition || len(c.Objects) == 0 {
			continue
		}
		x, y := c.Float(layout.ParamX, math.NaN()), c.Float(layout.ParamY, math.NaN())
		if !math.IsNaN(x) && !math.IsNaN(y) {
			out[c.Objects[0]] = layout.Point{X: x, Y: y}
		}
	}
	return out
}

// renderLayout runs neato and returns the laid-out graph in DOT syntax.
func renderLayout(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	nodeStmtRe = regexp.MustCompile(`(?ms)^\s*n(\d+)\s*\[(.*?)\];`)
	posAttrRe  = regexp.MustCompile(`\bpos="([-0-9.e+]+),([-0-9.e+]+)!?"`)
)

// parsePositions extracts node centres (y up, in points) from rendered DOT.
func parsePositions(out []byte, n int) ([]layout.Point, error) {
	pts := make([]layout.Point, n)
	seen := make([]bool, n)
	for _, m := range nodeStmtRe.FindAllSubmatch(out, -1) {
		i, err := strconv.Atoi(string(m[1]))
		if err != nil || i < 0 || i >= n {
			continue
		}
		pm := posAttrRe.FindSubmatch(m[2])
		if pm == nil {
			continue
		}
		x, errX := strconv.ParseFloat(string(pm[1]), 64)
		y, errY := strconv.ParseFloat(string(pm[2]), 64)
		if errX != nil || errY != nil {
			continue
		}
		pts[i] = layout.Point{X: x, Y: y}
		seen[i] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("no position for node n%d", i)
		}
	}
	return pts, nil
}

// fitToCanvas flips the y axis, shrinks the drawing if it does not fit and
// centres it in the inner canvas.
func fitToCanvas(pts []layout.Point, canvas layout.Canvas) []layout.Point {
	canvas = canvas.WithDefaults()
	x0, y0, x1, y1 := canvas.Inner()

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, -p.Y), math.Max(maxY, -p.Y)
	}
	bw, bh := maxX-minX, maxY-minY
	scale := 1.0
	if bw > 0 {
		scale = math.Min(scale, (x1-x0)/bw)
	}
	if bh > 0 {
		scale = math.Min(scale, (y1-y0)/bh)
	}
	cx, cy := (x0+x1)/2, (y0+y1)/2
	mx, my := (minX+maxX)/2, (minY+maxY)/2

	out := make([]layout.Point, len(pts))
	for i, p := range pts {
		out[i] = layout.Point{
			X: cx + (p.X-mx)*scale,
			Y: cy + (-p.Y-my)*scale,
		}
	}
	return out
}
