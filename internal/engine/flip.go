package engine

import (
	"go.uber.org/zap"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
	"github.com/mrbar76/ALPENSIMULATOR/internal/rules"
)

// FlipResolver decides whether a pane must be installed flipped relative to
// its catalog-default orientation so that its coating lands on the
// manufacturing-mandated surface for its position.
//
// Surface convention (fixed): triples number surfaces 1-6 outside-to-inside
// with standard low-e on 2 and 5 and center coatings on 4; quads number 1-8
// with low-e on 2 and 7, quad-inner coatings on 4 and center coatings on 6.
// The i89 product is the exception: it always targets the innermost surface
// (6 for triples, 8 for quads) and uses its own per-assembly table instead
// of the generic inner-position rule.
type FlipResolver struct {
	rules rules.RuleSet
	log   *zap.SugaredLogger
}

// NewFlipResolver builds a resolver over the given rule set.
func NewFlipResolver(rs rules.RuleSet, log *zap.SugaredLogger) *FlipResolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FlipResolver{rules: rs, log: log}
}

// ShouldFlip resolves the flip flag for one pane. Uncoated panes never flip.
// Unknown positions or coating sides resolve to "no flip" with a warning;
// they are data problems, not fatal ones.
func (r *FlipResolver) ShouldFlip(assembly model.AssemblyType, pos model.Position, coating *model.Coating) bool {
	if coating == nil || coating.Side == model.SideNone {
		return false
	}

	var rule rules.FlipRule
	if pos == model.PositionInner && coating.IsI89() {
		rule = r.rules.I89Flip[assembly]
	} else {
		var ok bool
		rule, ok = r.rules.FlipLogic[pos]
		if !ok {
			r.log.Warnw("no flip rule for position, defaulting to no flip",
				"position", pos.String(), "coating", coating.Name)
			return false
		}
	}

	switch coating.Side {
	case rule.FlipIf:
		return true
	case rule.KeepIf:
		return false
	default:
		r.log.Warnw("coating side matches neither flip nor keep rule, defaulting to no flip",
			"position", pos.String(), "side", coating.Side.String(), "coating", coating.Name)
		return false
	}
}

// LayerFlip resolves the installed orientation for a catalog glass in a
// position: an authored Flip_* override bypasses the resolver entirely.
func (r *FlipResolver) LayerFlip(assembly model.AssemblyType, pos model.Position, glass model.GlassRecord, coating *model.Coating) bool {
	if flip, ok := glass.FlipOverride(pos); ok {
		return flip
	}
	return r.ShouldFlip(assembly, pos, coating)
}
