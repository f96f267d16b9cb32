package model

import (
	"fmt"
	"strings"
)

// MMPerInch converts outer-assembly sizes between the two unit systems the
// manufacturing side uses.
const MMPerInch = 25.4

// AssemblyType is the pane count family of an IGU.
type AssemblyType int

const (
	Triple AssemblyType = iota // 3 panes, 2 gaps, 6 surfaces
	Quad                       // 4 panes, 3 gaps, 8 surfaces
)

func (a AssemblyType) String() string {
	if a == Quad {
		return "Quad"
	}
	return "Triple"
}

// ParseAssemblyType converts a string to an AssemblyType.
func ParseAssemblyType(s string) (AssemblyType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "triple":
		return Triple, true
	case "quad":
		return Quad, true
	default:
		return Triple, false
	}
}

// LayerCount returns the number of panes in the assembly.
func (a AssemblyType) LayerCount() int {
	if a == Quad {
		return 4
	}
	return 3
}

// GapCount returns the number of sealed gas gaps.
func (a AssemblyType) GapCount() int {
	return a.LayerCount() - 1
}

// SurfaceCount returns the number of numbered glass faces,
// counted outside-to-inside across the whole assembly.
func (a AssemblyType) SurfaceCount() int {
	return a.LayerCount() * 2
}

// Positions returns the pane roles in assembly order, outermost first.
func (a AssemblyType) Positions() []Position {
	if a == Quad {
		return []Position{PositionOuter, PositionQuadInner, PositionCenter, PositionInner}
	}
	return []Position{PositionOuter, PositionCenter, PositionInner}
}

// OATarget is one requested outer-assembly size in both unit systems.
// The two values are authored independently in the input list; the importer
// warns when they disagree beyond rounding.
type OATarget struct {
	Inches float64 `json:"oa_in"`
	MM     float64 `json:"oa_mm"`
}

// GasFill is one gas type available for the sealed gaps, with optional
// thermal and cost attributes from the rule document.
type GasFill struct {
	Name         string  `json:"name"`
	Conductivity float64 `json:"conductivity,omitempty"` // W/m·K, 0 = unspecified
	CostFactor   float64 `json:"cost_factor,omitempty"`  // relative to air, 0 = unspecified
}

// Configuration is one emitted IGU candidate: an ordered stack of glass
// layers with flip flags and a discrete gap solution. Immutable once
// emitted.
type Configuration struct {
	Assembly AssemblyType `json:"assembly_type"`
	Target   OATarget     `json:"target"`

	ActualMM float64 `json:"actual_oa_mm"`
	ActualIn float64 `json:"actual_oa_in"`
	DeltaMM  float64 `json:"oa_delta_mm"` // signed: actual - target

	Gas string `json:"gas_type"`

	// Ordered outermost to innermost; length is Assembly.LayerCount().
	GlassIDs []int     `json:"glass_ids"`
	Flips    []bool    `json:"flips"`
	GapsMM   []float64 `json:"gaps_mm"` // length is Assembly.GapCount()

	Reason string `json:"reason"` // gap selection rationale
}

// Key is the structural identity used for deduplication:
// assembly type, requested OA in inches, gas type, and the ordered glass ids.
func (c Configuration) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%.4f|%s", c.Assembly, c.Target.Inches, strings.ToLower(c.Gas))
	for _, id := range c.GlassIDs {
		fmt.Fprintf(&b, "|%d", id)
	}
	return b.String()
}

// Deduplicate collapses configurations sharing a structural key, keeping the
// first occurrence. The operation is idempotent and order-preserving.
func Deduplicate(configs []Configuration) []Configuration {
	seen := make(map[string]bool, len(configs))
	out := make([]Configuration, 0, len(configs))
	for _, c := range configs {
		k := c.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
