// Package engine is the IGU generation core: it enumerates candidate
// glass stacks per assembly type, validates them against the manufacturing
// rules, solves the discrete spacer assignment for the requested outer
// dimension, and resolves coating orientation per pane.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrbar76/ALPENSIMULATOR/internal/igsdb"
	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
	"github.com/mrbar76/ALPENSIMULATOR/internal/rules"
)

// Skip reasons tallied in the run summary. Rejections are the enumerator's
// normal behavior, never errors.
const (
	SkipMetadata        = "metadata"
	SkipEdgeThickness   = "edge_thickness"
	SkipEdgeSymmetry    = "edge_symmetry"
	SkipManufacturer    = "manufacturer"
	SkipCenterRule      = "center_eligibility"
	SkipLowEOrdering    = "lowe_ordering"
	SkipCoatingConflict = "coating_conflict"
	SkipGapSearch       = "gap_search"
)

// Catalogs are the four position candidate sets. A glass may appear in more
// than one set.
type Catalogs struct {
	Outer     []model.GlassRecord
	QuadInner []model.GlassRecord
	Center    []model.GlassRecord
	Inner     []model.GlassRecord
}

// Summary is the always-produced outcome of a generation run. Zero emitted
// configurations is a valid, reportable result.
type Summary struct {
	RunID   string
	Tested  int
	Emitted int
	Skipped map[string]int

	UpstreamCalls  int
	MetadataMisses int
	Elapsed        time.Duration
}

// SkippedTotal sums the per-rule rejection counts.
func (s Summary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Enumerator drives the nested iteration over assembly type, outer-size
// target, gas type, and glass combination.
type Enumerator struct {
	rules    rules.RuleSet
	provider igsdb.Provider
	flip     *FlipResolver
	log      *zap.SugaredLogger
}

// New builds an Enumerator. The provider is consulted through a per-run
// memo, so passing a bare HTTP client is safe.
func New(rs rules.RuleSet, provider igsdb.Provider, log *zap.SugaredLogger) *Enumerator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Enumerator{
		rules:    rs,
		provider: provider,
		flip:     NewFlipResolver(rs, log),
		log:      log,
	}
}

// layer pairs a catalog record with its resolved metadata for one position.
type layer struct {
	pos   model.Position
	glass model.GlassRecord
	meta  igsdb.Metadata
}

func (l layer) coated() bool {
	return l.meta.Coating != nil && l.meta.Coating.Side != model.SideNone
}

// Generate enumerates all requested assembly types and returns the
// deduplicated configuration set with a run summary. Only structural
// problems (empty mandatory catalogs, no targets, no gases, inconsistent
// constants) return an error; everything else is a counted skip. A canceled
// context stops enumeration early; configurations already emitted remain
// valid and are returned alongside the context error.
func (e *Enumerator) Generate(ctx context.Context, cats Catalogs, targets []model.OATarget, gases []model.GasFill, assemblies []model.AssemblyType) ([]model.Configuration, Summary, error) {
	start := time.Now()
	summary := Summary{
		RunID:   uuid.New().String()[:8],
		Skipped: map[string]int{},
	}

	if _, err := e.rules.Constants.Validate(); err != nil {
		return nil, summary, fmt.Errorf("rule constants: %w", err)
	}
	if err := checkStructure(cats, targets, gases, assemblies); err != nil {
		return nil, summary, err
	}

	memo := igsdb.NewMemo(e.provider, e.log)
	if err := e.prefetch(ctx, memo, cats, assemblies); err != nil {
		return nil, summary, err
	}

	var configs []model.Configuration
	var runErr error
	for _, assembly := range assemblies {
		var err error
		configs, err = e.generateType(ctx, assembly, cats, targets, gases, memo, &summary, configs)
		if err != nil {
			runErr = err
			break
		}
	}

	configs = model.Deduplicate(configs)
	summary.Emitted = len(configs)
	summary.UpstreamCalls, summary.MetadataMisses = memo.Stats()
	summary.Elapsed = time.Since(start)

	e.log.Infow("generation run complete",
		"run_id", summary.RunID,
		"tested", summary.Tested,
		"skipped", summary.SkippedTotal(),
		"emitted", summary.Emitted,
		"elapsed", summary.Elapsed)

	return configs, summary, runErr
}

func checkStructure(cats Catalogs, targets []model.OATarget, gases []model.GasFill, assemblies []model.AssemblyType) error {
	if len(assemblies) == 0 {
		return fmt.Errorf("no assembly types requested")
	}
	if len(targets) == 0 {
		return fmt.Errorf("outer-size target list is empty")
	}
	if len(gases) == 0 {
		return fmt.Errorf("gas type list is empty")
	}
	if len(cats.Outer) == 0 {
		return fmt.Errorf("no glass eligible for the outer position")
	}
	if len(cats.Center) == 0 {
		return fmt.Errorf("no glass eligible for the center position")
	}
	if len(cats.Inner) == 0 {
		return fmt.Errorf("no glass eligible for the inner position")
	}
	for _, a := range assemblies {
		if a == model.Quad && len(cats.QuadInner) == 0 {
			return fmt.Errorf("no glass eligible for the quad-inner position")
		}
	}
	return nil
}

// prefetch resolves every distinct glass id once before enumeration, so the
// combinatorial loops below touch only memoized metadata.
func (e *Enumerator) prefetch(ctx context.Context, memo *igsdb.Memo, cats Catalogs, assemblies []model.AssemblyType) error {
	ids := map[int]bool{}
	collect := func(records []model.GlassRecord) {
		for _, g := range records {
			ids[g.ID] = true
		}
	}
	collect(cats.Outer)
	collect(cats.Center)
	collect(cats.Inner)
	for _, a := range assemblies {
		if a == model.Quad {
			collect(cats.QuadInner)
			break
		}
	}

	for id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		memo.Resolve(ctx, id)
	}
	return nil
}

func (e *Enumerator) generateType(ctx context.Context, assembly model.AssemblyType, cats Catalogs, targets []model.OATarget, gases []model.GasFill, memo *igsdb.Memo, summary *Summary, configs []model.Configuration) ([]model.Configuration, error) {
	c := e.rules.Constants
	emittedForType := 0

	oaTargets := targets
	if assembly == model.Quad {
		oaTargets = nil
		for _, t := range targets {
			if t.Inches > c.QuadOAMinInch {
				oaTargets = append(oaTargets, t)
			}
		}
	}

	for _, target := range oaTargets {
		for _, gas := range gases {
			for _, outer := range cats.Outer {
				stack := make([]layer, 0, assembly.LayerCount())
				stack = append(stack, layer{pos: model.PositionOuter, glass: outer})

				var err error
				if assembly == model.Quad {
					for _, qi := range cats.QuadInner {
						quadStack := append(stack, layer{pos: model.PositionQuadInner, glass: qi})
						configs, emittedForType, err = e.innerLoops(ctx, assembly, quadStack, cats, target, gas, memo, summary, configs, emittedForType)
						if err != nil || capped(c, emittedForType) {
							return configs, err
						}
					}
				} else {
					configs, emittedForType, err = e.innerLoops(ctx, assembly, stack, cats, target, gas, memo, summary, configs, emittedForType)
					if err != nil || capped(c, emittedForType) {
						return configs, err
					}
				}
			}
		}
	}
	return configs, nil
}

// innerLoops runs the center and inner iteration for a fixed prefix of the
// stack, validating each full combination.
func (e *Enumerator) innerLoops(ctx context.Context, assembly model.AssemblyType, prefix []layer, cats Catalogs, target model.OATarget, gas model.GasFill, memo *igsdb.Memo, summary *Summary, configs []model.Configuration, emittedForType int) ([]model.Configuration, int, error) {
	c := e.rules.Constants

	for _, center := range cats.Center {
		for _, inner := range cats.Inner {
			if err := ctx.Err(); err != nil {
				return configs, emittedForType, err
			}
			if capped(c, emittedForType) {
				return configs, emittedForType, nil
			}

			stack := make([]layer, len(prefix), len(prefix)+2)
			copy(stack, prefix)
			stack = append(stack,
				layer{pos: model.PositionCenter, glass: center},
				layer{pos: model.PositionInner, glass: inner})

			summary.Tested++
			cfg, reason := e.evaluate(ctx, assembly, stack, target, gas, memo)
			if reason != "" {
				summary.Skipped[reason]++
				continue
			}
			configs = append(configs, *cfg)
			emittedForType++
		}
	}
	return configs, emittedForType, nil
}

// evaluate applies the validation gates in order and, on full pass, computes
// the gap solution and flip flags. Returns the configuration or the skip
// reason. Gate order is an efficiency choice only; the gates are independent.
func (e *Enumerator) evaluate(ctx context.Context, assembly model.AssemblyType, stack []layer, target model.OATarget, gas model.GasFill, memo *igsdb.Memo) (*model.Configuration, string) {
	c := e.rules.Constants

	// Gate 1: every pane must resolve to usable metadata.
	for i := range stack {
		meta, found, _ := memo.Resolve(ctx, stack[i].glass.ID)
		if !found {
			return nil, SkipMetadata
		}
		stack[i].meta = meta
	}

	outer := stack[0]
	inner := stack[len(stack)-1]

	// Gate 2: edge panes carry the unit and must meet the nominal floor.
	if outer.meta.ThicknessMM < c.MinEdgeNominal || inner.meta.ThicknessMM < c.MinEdgeNominal {
		return nil, SkipEdgeThickness
	}

	// Gate 3: edge symmetry within tolerance.
	if math.Abs(outer.meta.ThicknessMM-inner.meta.ThicknessMM) > c.TOL {
		return nil, SkipEdgeSymmetry
	}

	// Gate 4: manufacturer compatibility policy.
	if c.RequireEdgeManufacturerMatch &&
		!model.ManufacturerMatch(outer.meta.Manufacturer, inner.meta.Manufacturer) {
		return nil, SkipManufacturer
	}

	// Gate 5: center-position eligibility, including the quad rule that a
	// coated center excludes a coated quad-inner in the protected cavity.
	var center, quadInner *layer
	for i := range stack {
		switch stack[i].pos {
		case model.PositionCenter:
			center = &stack[i]
		case model.PositionQuadInner:
			quadInner = &stack[i]
		}
	}
	if center != nil && center.meta.ThicknessMM > c.CenterMaxThickness+c.TOL {
		return nil, SkipCenterRule
	}
	if quadInner != nil {
		if quadInner.meta.ThicknessMM > c.CenterMaxThickness+c.TOL {
			return nil, SkipCenterRule
		}
		if c.QuadInnerUncoatedIfCenter && center != nil && center.coated() && quadInner.coated() {
			return nil, SkipCenterRule
		}
	}

	// Gate 6: low-e ordering keeps the more reflective coating outboard.
	if c.RequireLowEOrdering {
		outerEmis := outer.meta.EffectiveEmissivity(outer.glass.Emissivity)
		innerEmis := inner.meta.EffectiveEmissivity(inner.glass.Emissivity)
		if outerEmis < innerEmis {
			return nil, SkipLowEOrdering
		}
	}

	// Gate 7: the same coated glass id twice means a duplicated selection.
	coatedIDs := map[int]bool{}
	for _, l := range stack {
		if !l.coated() {
			continue
		}
		if coatedIDs[l.glass.ID] {
			return nil, SkipCoatingConflict
		}
		coatedIDs[l.glass.ID] = true
	}

	// Geometry: solve the discrete spacer assignment.
	thicknesses := make([]float64, len(stack))
	for i, l := range stack {
		thicknesses[i] = l.meta.ThicknessMM
	}
	gaps := SelectGaps(target.MM, thicknesses, assembly.GapCount(), c)
	if gaps == nil {
		return nil, SkipGapSearch
	}

	ids := make([]int, len(stack))
	flips := make([]bool, len(stack))
	for i, l := range stack {
		ids[i] = l.glass.ID
		flips[i] = e.flip.LayerFlip(assembly, l.pos, l.glass, l.meta.Coating)
	}

	return &model.Configuration{
		Assembly: assembly,
		Target:   target,
		ActualMM: gaps.ActualMM,
		ActualIn: gaps.ActualIn,
		DeltaMM:  gaps.DeltaMM,
		Gas:      gas.Name,
		GlassIDs: ids,
		Flips:    flips,
		GapsMM:   gaps.GapsMM,
		Reason:   gaps.Reason,
	}, ""
}

func capped(c rules.Constants, emitted int) bool {
	return c.MaxResultsPerType > 0 && emitted >= c.MaxResultsPerType
}
