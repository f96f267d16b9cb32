package model

import "strings"

// DefaultEmissivity is the emissivity of uncoated float glass, used whenever
// neither the catalog nor the glazing database supplies a measured value.
const DefaultEmissivity = 0.84

// CoatingSide identifies which face of a pane carries its coating.
type CoatingSide int

const (
	SideNone  CoatingSide = iota // Uncoated
	SideFront                    // Coating on the front face (toward surface 1)
	SideBack                     // Coating on the back face
)

func (s CoatingSide) String() string {
	switch s {
	case SideFront:
		return "front"
	case SideBack:
		return "back"
	default:
		return "none"
	}
}

// ParseCoatingSide converts a catalog or database string to a CoatingSide.
// Unrecognized values map to SideNone with ok=false.
func ParseCoatingSide(s string) (CoatingSide, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front":
		return SideFront, true
	case "back":
		return SideBack, true
	case "", "none", "n/a", "-":
		return SideNone, true
	default:
		return SideNone, false
	}
}

// Coating describes a low-emissivity (or similar) coating on a pane.
// A nil *Coating means the pane is uncoated.
type Coating struct {
	Side CoatingSide `json:"side"`
	Name string      `json:"name"`
}

// IsI89 reports whether the coating is the i89 product family, which must
// land on the innermost surface of the assembly regardless of the standard
// low-e placement rule.
func (c *Coating) IsI89() bool {
	return c != nil && strings.Contains(strings.ToLower(c.Name), "i89")
}

// Position is the role a pane plays inside an assembly.
type Position int

const (
	PositionOuter Position = iota
	PositionQuadInner
	PositionCenter
	PositionInner
)

func (p Position) String() string {
	switch p {
	case PositionOuter:
		return "outer"
	case PositionQuadInner:
		return "quad_inner"
	case PositionCenter:
		return "center"
	case PositionInner:
		return "inner"
	default:
		return "unknown"
	}
}

// GlassRecord is one catalog entry: a glazing product identified by its
// NFRC id, with the positions it may fill and optional authored flip
// overrides per position. Thickness, manufacturer, and coating data are
// resolved lazily through the metadata provider, not stored here, except
// for the optional catalog emissivity column.
type GlassRecord struct {
	ID        int    `json:"nfrc_id"`
	ShortName string `json:"short_name"`

	CanOuter     bool `json:"can_outer"`
	CanInner     bool `json:"can_inner"`
	CanCenter    bool `json:"can_center"`
	CanQuadInner bool `json:"can_quad_inner"`

	// Authored flip overrides. When set for a position, the coating
	// placement resolver is bypassed entirely for that glass/position pair.
	FlipOuter     *bool `json:"flip_outer,omitempty"`
	FlipInner     *bool `json:"flip_inner,omitempty"`
	FlipCenter    *bool `json:"flip_center,omitempty"`
	FlipQuadInner *bool `json:"flip_quad_inner,omitempty"`

	// Catalog emissivity, when the catalog carries the column. Takes
	// precedence over the metadata provider's value.
	Emissivity *float64 `json:"emissivity,omitempty"`
}

// CanFill reports whether the glass may be placed in the given position.
func (g GlassRecord) CanFill(p Position) bool {
	switch p {
	case PositionOuter:
		return g.CanOuter
	case PositionInner:
		return g.CanInner
	case PositionCenter:
		return g.CanCenter
	case PositionQuadInner:
		return g.CanQuadInner
	default:
		return false
	}
}

// FlipOverride returns the authored flip flag for a position, if present.
func (g GlassRecord) FlipOverride(p Position) (flip, ok bool) {
	var v *bool
	switch p {
	case PositionOuter:
		v = g.FlipOuter
	case PositionInner:
		v = g.FlipInner
	case PositionCenter:
		v = g.FlipCenter
	case PositionQuadInner:
		v = g.FlipQuadInner
	}
	if v == nil {
		return false, false
	}
	return *v, true
}

// ManufacturerMatch implements the edge-glass manufacturer compatibility
// policy: case-insensitive equality, the "generic" universal sentinel on
// either side, or either name being a substring of the other (covers
// variants like "Cardinal" vs "Cardinal Glass Co.").
func ManufacturerMatch(a, b string) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la == "" || lb == "" {
		return false
	}
	if la == lb {
		return true
	}
	if strings.Contains(la, "generic") || strings.Contains(lb, "generic") {
		return true
	}
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}
