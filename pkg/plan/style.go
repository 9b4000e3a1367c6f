package plan

import "strings"

// Default style values.
const (
	DefaultColor       = "#333333"
	DefaultSize        = 40.0
	DefaultShape       = "rect"
	DefaultStrokeWidth = 2.0
	DefaultFont        = "Helvetica"
)

// DefaultStyle is applied to entities with no domain override.
var DefaultStyle = Style{
	Color:       DefaultColor,
	Size:        DefaultSize,
	Shape:       DefaultShape,
	StrokeWidth: DefaultStrokeWidth,
	Font:        DefaultFont,
}

// styleOverride pairs a type keyword with its style. Tables are matched in
// order, first match wins.
type styleOverride struct {
	key   string
	style Style
}

// electricalStyles are symbol and colour pairs for circuit components.
var electricalStyles = []styleOverride{
	{"battery", Style{Color: "#d62728", Symbol: "battery", Shape: "symbol"}},
	{"resistor", Style{Color: "#1f77b4", Symbol: "resistor", Shape: "symbol"}},
	{"capacitor", Style{Color: "#2ca02c", Symbol: "capacitor", Shape: "symbol"}},
	{"switch", Style{Color: "#ff7f0e", Symbol: "switch", Shape: "symbol"}},
	{"bulb", Style{Color: "#bcbd22", Symbol: "lamp", Shape: "circle"}},
	{"ammeter", Style{Color: "#9467bd", Symbol: "ammeter", Shape: "circle"}},
	{"voltmeter", Style{Color: "#8c564b", Symbol: "voltmeter", Shape: "circle"}},
}

// mechanicalStyles are symbol, colour and shape triples for mechanics.
var mechanicalStyles = []styleOverride{
	{"spring", Style{Color: "#7f7f7f", Symbol: "spring", Shape: "zigzag"}},
	{"mass", Style{Color: "#8c564b", Symbol: "mass", Shape: "rect"}},
	{"block", Style{Color: "#8c564b", Symbol: "mass", Shape: "rect"}},
	{"pulley", Style{Color: "#17becf", Symbol: "pulley", Shape: "circle"}},
	{"force", Style{Color: "#d62728", Symbol: "arrow", Shape: "arrow"}},
}

var electricalDomains = map[string]bool{
	"current_electricity": true,
	"electrostatics":      true,
	"electricity":         true,
	"electronics":         true,
	"circuits":            true,
}

var mechanicalDomains = map[string]bool{
	"mechanics":  true,
	"kinematics": true,
	"dynamics":   true,
	"statics":    true,
}

// IsElectricalDomain reports whether domain is one of the circuit domains.
func IsElectricalDomain(domain string) bool { return electricalDomains[domain] }

// IsMechanicalDomain reports whether domain is one of the mechanics domains.
func IsMechanicalDomain(domain string) bool { return mechanicalDomains[domain] }

// StyleFor returns the style of an entity of the given type in a domain.
// Domain overrides are matched by substring on the lower-cased type.
func StyleFor(domain, entityType string) Style {
	t := strings.ToLower(entityType)
	var table []styleOverride
	switch {
	case electricalDomains[domain]:
		table = electricalStyles
	case mechanicalDomains[domain]:
		table = mechanicalStyles
	}
	for _, o := range table {
		if strings.Contains(t, o.key) {
			return merge(DefaultStyle, o.style)
		}
	}
	return DefaultStyle
}

func merge(base, o Style) Style {
	if o.Color != "" {
		base.Color = o.Color
	}
	if o.Size != 0 {
		base.Size = o.Size
	}
	if o.Shape != "" {
		base.Shape = o.Shape
	}
	if o.StrokeWidth != 0 {
		base.StrokeWidth = o.StrokeWidth
	}
	if o.Font != "" {
		base.Font = o.Font
	}
	base.Symbol = o.Symbol
	return base
}
