package graphplan

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/matzehuels/stemplan/pkg/graph"
)

// Drop reasons recorded in the filter step.
const (
	DropAbstract     = "abstract"
	DropSpatial      = "spatial"
	DropUnit         = "unit"
	DropGreek        = "greek"
	DropFunctionWord = "function_word"
	DropNotDrawable  = "not_drawable"
)

// abstractTypes are node types that never have a visual.
var abstractTypes = map[string]bool{
	"concept":   true,
	"law":       true,
	"process":   true,
	"event":     true,
	"principle": true,
	"theory":    true,
}

// physicalVocabulary lists nouns of drawable things across domains. A node
// whose label, id or type contains one of them as a word is kept.
var physicalVocabulary = wordSet(
	// electrical
	"battery", "cell", "resistor", "capacitor", "inductor", "switch", "bulb",
	"lamp", "wire", "ammeter", "voltmeter", "galvanometer", "diode", "fuse",
	"transistor", "charge", "plate", "conductor", "coil", "magnet", "motor",
	"generator", "source", "terminal", "rheostat",
	// mechanical
	"block", "mass", "spring", "pulley", "rope", "string", "incline", "ramp",
	"ball", "cart", "car", "pendulum", "bob", "lever", "beam", "rod", "wheel",
	"body", "box", "particle", "sphere", "wall", "floor", "ground", "table",
	"force", "weight", "projectile", "surface",
	// chemistry and biology
	"atom", "molecule", "ion", "electron", "proton", "neutron", "beaker",
	"flask", "tube", "burette", "nucleus", "membrane", "enzyme", "protein",
	"organ", "tissue", "leaf", "root", "heart",
	// geometry
	"point", "line", "segment", "circle", "triangle", "square", "rectangle",
	"polygon", "angle", "arc", "vertex", "cube", "cylinder", "cone",
	// optics
	"lens", "mirror", "prism", "ray", "screen", "slit", "object", "image",
)

var spatialWords = wordSet(
	"left", "right", "top", "bottom", "upper", "lower", "middle", "center",
	"centre", "half", "side", "above", "below", "front", "back", "near",
	"far", "inside", "outside", "between", "corner", "edge",
)

var functionWords = wordSet(
	"the", "a", "an", "of", "and", "or", "in", "on", "at", "to", "with",
	"by", "for", "from", "is", "are", "it", "this", "that", "these", "those",
)

var greekNames = wordSet(
	"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta",
	"iota", "kappa", "lambda", "mu", "nu", "xi", "omicron", "pi", "rho",
	"sigma", "tau", "upsilon", "phi", "chi", "psi", "omega",
)

// unitTokenRe matches a bare quantity such as "12 mm", "-3.5V" or "90°".
var unitTokenRe = regexp.MustCompile(`^[-+]?\d+(\.\d+)?\s*(mm|cm|km|m|kg|mg|g|ms|s|min|h|n|kn|j|kj|w|kw|v|mv|a|ma|ohms?|ω|f|µf|uf|nf|pf|hz|khz|c|k|°c?|deg|%|mol|l|ml|pa|kpa)?$`)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// words splits s into lower-cased letter/digit runs.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FilterStats counts dropped nodes by reason.
type FilterStats struct {
	Kept    int            `json:"kept"`
	Dropped map[string]int `json:"dropped,omitempty"`
}

// FilterEntities returns the nodes of g that represent drawable entities,
// in graph order.
func FilterEntities(g *graph.Graph) ([]graph.Node, FilterStats) {
	stats := FilterStats{Dropped: map[string]int{}}
	var kept []graph.Node
	for _, n := range g.Nodes {
		if reason := classifyNode(n); reason != "" {
			stats.Dropped[reason]++
			continue
		}
		kept = append(kept, n)
	}
	stats.Kept = len(kept)
	return kept, stats
}

// Drawable reports whether n survives entity filtering.
func Drawable(n graph.Node) bool { return classifyNode(n) == "" }

// classifyNode returns the drop reason for n, or "" when it is kept.
func classifyNode(n graph.Node) string {
	if abstractTypes[strings.ToLower(strings.TrimSpace(n.Type))] {
		return DropAbstract
	}
	label := strings.TrimSpace(n.DisplayLabel())
	toks := words(label + " " + n.Type)
	for _, t := range toks {
		if physicalVocabulary[t] || physicalVocabulary[strings.TrimSuffix(t, "s")] {
			return ""
		}
	}

	lt := words(label)
	switch {
	case len(lt) > 0 && allOf(lt, func(w string) bool { return spatialWords[w] || functionWords[w] }) && anyIn(lt, spatialWords):
		return DropSpatial
	case unitTokenRe.MatchString(strings.ToLower(label)):
		return DropUnit
	case isGreek(label):
		return DropGreek
	case len(lt) > 0 && allOf(lt, func(w string) bool { return functionWords[w] }):
		return DropFunctionWord
	}
	return DropNotDrawable
}

// isGreek reports whether s is a single Greek letter or a Greek letter name,
// optionally with a subscript digit.
func isGreek(s string) bool {
	s = strings.TrimRightFunc(strings.TrimSpace(s), func(r rune) bool { return unicode.IsDigit(r) || r == '_' })
	if s == "" {
		return false
	}
	if r := []rune(s); len(r) == 1 && unicode.Is(unicode.Greek, r[0]) {
		return true
	}
	return greekNames[strings.ToLower(s)]
}

func allOf(ws []string, f func(string) bool) bool {
	for _, w := range ws {
		if !f(w) {
			return false
		}
	}
	return true
}

func anyIn(ws []string, set map[string]bool) bool {
	for _, w := range ws {
		if set[w] {
			return true
		}
	}
	return false
}
