package rules

import (
	"fmt"
	"strings"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// Constants are the numeric manufacturing constants, materialized once from
// the merged document. Zero configuration yields these documented defaults.
type Constants struct {
	TOL                float64 // mm, measured-thickness tolerance
	MinEdgeNominal     float64 // mm, floor for outer/inner pane thickness
	MinAirGap          float64 // mm, floor for each sealed gap
	QuadOAMinInch      float64 // in, quads are skipped at or below this OA
	CenterMaxThickness float64 // mm, ceiling for center-role panes

	StandardGapsMM  []float64 // discrete manufacturable spacer sizes
	NearEqualBandMM float64   // gap-search tie band around the best score

	MaxResultsPerType int // 0 = unlimited (the old "fast" variant's cap)

	RequireEdgeManufacturerMatch bool
	RequireLowEOrdering          bool
	QuadInnerUncoatedIfCenter    bool
}

// DefaultConstants returns the built-in constants used when no rule document
// is present.
func DefaultConstants() Constants {
	return Constants{
		TOL:                          0.3,
		MinEdgeNominal:               3.0,
		MinAirGap:                    6.0,
		QuadOAMinInch:                0.75,
		CenterMaxThickness:           1.1,
		StandardGapsMM:               defaultStandardGaps(),
		NearEqualBandMM:              0.10,
		MaxResultsPerType:            0,
		RequireEdgeManufacturerMatch: true,
		RequireLowEOrdering:          true,
		QuadInnerUncoatedIfCenter:    true,
	}
}

func defaultStandardGaps() []float64 {
	gaps := make([]float64, 0, 15)
	for g := 6.0; g <= 20.0; g++ {
		gaps = append(gaps, g)
	}
	return gaps
}

// Validate checks internal consistency. Inverted ranges that would make
// generation nonsensical are hard errors; softer oddities come back as
// warnings for the caller to log.
func (c Constants) Validate() ([]string, error) {
	var warnings []string

	if c.TOL < 0 {
		return warnings, fmt.Errorf("TOL must be non-negative, got %.3f", c.TOL)
	}
	if c.MinAirGap <= 0 {
		return warnings, fmt.Errorf("MIN_AIRGAP must be positive, got %.3f", c.MinAirGap)
	}
	if len(c.StandardGapsMM) == 0 {
		return warnings, fmt.Errorf("standard spacer size list is empty")
	}
	minGap, maxGap := c.StandardGapsMM[0], c.StandardGapsMM[0]
	for _, g := range c.StandardGapsMM {
		if g < minGap {
			minGap = g
		}
		if g > maxGap {
			maxGap = g
		}
	}
	if minGap > maxGap {
		return warnings, fmt.Errorf("inverted spacer range %.1f..%.1f", minGap, maxGap)
	}
	if maxGap < c.MinAirGap {
		return warnings, fmt.Errorf("every standard spacer (max %.1fmm) is below MIN_AIRGAP %.1fmm", maxGap, c.MinAirGap)
	}
	if minGap < c.MinAirGap {
		warnings = append(warnings, fmt.Sprintf("standard spacers below MIN_AIRGAP %.1fmm will never be selected", c.MinAirGap))
	}
	if c.NearEqualBandMM < 0 {
		warnings = append(warnings, "negative near-equal band treated as zero")
	}
	if c.CenterMaxThickness >= c.MinEdgeNominal {
		warnings = append(warnings, "center-glass ceiling is at or above the edge-glass floor; center panes may double as edges")
	}
	return warnings, nil
}

// FlipRule maps a coating side to an installed orientation for one position.
type FlipRule struct {
	FlipIf model.CoatingSide
	KeepIf model.CoatingSide
}

// RuleSet is the typed view of the merged rule document that reaches the
// enumerator. Built once per run by Resolve.
type RuleSet struct {
	Constants Constants

	// Per-position flip tables for standard coatings.
	FlipLogic map[model.Position]FlipRule
	// Dedicated i89 tables per assembly type (inner position only).
	I89Flip map[model.AssemblyType]FlipRule

	// Gas attributes keyed by lower-cased gas name.
	Gases map[string]model.GasFill
}

// Resolve walks the merged document and materializes the typed rule set,
// falling back to the documented default for every absent key.
func (s *Store) Resolve() RuleSet {
	c := DefaultConstants()
	c.TOL = s.GetFloat("constants.TOL", c.TOL)
	c.MinEdgeNominal = s.GetFloat("constants.MIN_EDGE_NOMINAL", c.MinEdgeNominal)
	c.MinAirGap = s.GetFloat("constants.MIN_AIRGAP", c.MinAirGap)
	c.QuadOAMinInch = s.GetFloat("constants.QUAD_OA_MIN_INCH", c.QuadOAMinInch)
	c.CenterMaxThickness = s.GetFloat("constants.CENTER_MAX_THICKNESS", c.CenterMaxThickness)
	c.NearEqualBandMM = s.GetFloat("oa_selection.near_equal_band_mm", c.NearEqualBandMM)
	c.MaxResultsPerType = s.GetInt("generation.max_results_per_type", c.MaxResultsPerType)
	c.RequireEdgeManufacturerMatch = s.GetBool("manufacturer_rules.edge_matching.enabled", c.RequireEdgeManufacturerMatch)
	c.RequireLowEOrdering = s.GetBool("lowe_ordering.enabled", c.RequireLowEOrdering)
	c.QuadInnerUncoatedIfCenter = s.GetBool(
		"glass_rules.center_glass.quad_special_rules.quad_inner_uncoated_if_center_coated",
		c.QuadInnerUncoatedIfCenter)

	if raw, ok := s.Get("oa_selection.standard_gaps_mm", nil).([]any); ok && len(raw) > 0 {
		gaps := make([]float64, 0, len(raw))
		for _, v := range raw {
			switch n := v.(type) {
			case float64:
				gaps = append(gaps, n)
			case int:
				gaps = append(gaps, float64(n))
			}
		}
		if len(gaps) > 0 {
			c.StandardGapsMM = gaps
		}
	}

	rs := RuleSet{
		Constants: c,
		FlipLogic: map[model.Position]FlipRule{},
		I89Flip:   map[model.AssemblyType]FlipRule{},
		Gases:     map[string]model.GasFill{},
	}

	// Standard flip tables. Convention per the latest generator revision:
	// outer/center/quad_inner flip when front-coated, inner flips when
	// back-coated (its target surface faces inside).
	defaults := map[model.Position]FlipRule{
		model.PositionOuter:     {FlipIf: model.SideFront, KeepIf: model.SideBack},
		model.PositionCenter:    {FlipIf: model.SideFront, KeepIf: model.SideBack},
		model.PositionQuadInner: {FlipIf: model.SideFront, KeepIf: model.SideBack},
		model.PositionInner:     {FlipIf: model.SideBack, KeepIf: model.SideFront},
	}
	for pos, def := range defaults {
		rs.FlipLogic[pos] = s.flipRuleAt("flipping_rules.flip_logic."+pos.String(), def)
	}

	// i89 lands on the innermost surface; default tables per assembly type.
	i89Default := FlipRule{FlipIf: model.SideFront, KeepIf: model.SideBack}
	rs.I89Flip[model.Triple] = s.flipRuleAt("flipping_rules.special_flip_rules.i89_coating.triple", i89Default)
	rs.I89Flip[model.Quad] = s.flipRuleAt("flipping_rules.special_flip_rules.i89_coating.quad", i89Default)

	if gases, ok := s.Get("gas_fill_rules.supported_gases", nil).(map[string]any); ok {
		for name, v := range gases {
			fill := model.GasFill{Name: name}
			if attrs, ok := v.(map[string]any); ok {
				if f, ok := toFloat(attrs["conductivity"]); ok {
					fill.Conductivity = f
				}
				if f, ok := toFloat(attrs["cost_factor"]); ok {
					fill.CostFactor = f
				}
			}
			rs.Gases[strings.ToLower(name)] = fill
		}
	}

	return rs
}

func (s *Store) flipRuleAt(path string, def FlipRule) FlipRule {
	rule := def
	if v := s.GetString(path+".flip_if_coating_side", ""); v != "" {
		if side, ok := model.ParseCoatingSide(v); ok {
			rule.FlipIf = side
		}
	}
	if v := s.GetString(path+".keep_if_coating_side", ""); v != "" {
		if side, ok := model.ParseCoatingSide(v); ok {
			rule.KeepIf = side
		}
	}
	return rule
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
