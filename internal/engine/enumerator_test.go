package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrbar76/ALPENSIMULATOR/internal/igsdb"
	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// mapProvider serves metadata from a fixed table; absent ids are misses.
type mapProvider map[int]igsdb.Metadata

func (m mapProvider) Resolve(_ context.Context, id int) (igsdb.Metadata, bool, error) {
	meta, ok := m[id]
	return meta, ok, nil
}

func fptr(v float64) *float64 { return &v }

// testProvider is a small realistic metadata table shared across tests.
func testProvider() mapProvider {
	return mapProvider{
		// Uncoated 3.0mm edge glass.
		100: {ThicknessMM: 3.0, Manufacturer: "Generic"},
		// Coated 3.0mm edge glass, back-side low-e.
		101: {ThicknessMM: 3.0, Manufacturer: "Cardinal",
			Coating:    &model.Coating{Side: model.SideBack, Name: "LoE-272"},
			Emissivity: fptr(0.05)},
		// Asymmetric edge glass.
		102: {ThicknessMM: 5.7, Manufacturer: "Generic"},
		// Manufacturer-mismatch pair.
		103: {ThicknessMM: 3.0, Manufacturer: "Cardinal"},
		104: {ThicknessMM: 3.0, Manufacturer: "Guardian"},
		// Thin center glass, uncoated and coated variants.
		200: {ThicknessMM: 1.0, Manufacturer: "Generic"},
		201: {ThicknessMM: 1.0, Manufacturer: "Generic",
			Coating:    &model.Coating{Side: model.SideFront, Name: "film low-e"},
			Emissivity: fptr(0.10)},
		// Too-thick center candidate.
		202: {ThicknessMM: 3.0, Manufacturer: "Generic"},
		// Coated quad-inner glass.
		300: {ThicknessMM: 1.0, Manufacturer: "Generic",
			Coating:    &model.Coating{Side: model.SideFront, Name: "film low-e"},
			Emissivity: fptr(0.12)},
	}
}

func glass(id int, outer, center, inner, quadInner bool) model.GlassRecord {
	return model.GlassRecord{
		ID: id, CanOuter: outer, CanCenter: center, CanInner: inner, CanQuadInner: quadInner,
	}
}

func singleTarget(inches float64) []model.OATarget {
	return []model.OATarget{{Inches: inches, MM: inches * model.MMPerInch}}
}

var airOnly = []model.GasFill{{Name: "Air"}}

func TestGenerate_TripleEndToEnd(t *testing.T) {
	enum := New(defaultRuleSet(t), testProvider(), nil)
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, true, false),
		glass(200, false, true, false, false),
	})

	configs, summary, err := enum.Generate(context.Background(), cats,
		singleTarget(1.0), airOnly, []model.AssemblyType{model.Triple})
	require.NoError(t, err)
	require.Len(t, configs, 1)

	cfg := configs[0]
	assert.Equal(t, model.Triple, cfg.Assembly)
	assert.Equal(t, []int{100, 200, 100}, cfg.GlassIDs)
	assert.Equal(t, []float64{9, 9}, cfg.GapsMM)
	assert.InDelta(t, 25.0, cfg.ActualMM, 1e-9)
	assert.InDelta(t, -0.4, cfg.DeltaMM, 1e-9)
	assert.Equal(t, "Air", cfg.Gas)
	assert.Equal(t, []bool{false, false, false}, cfg.Flips)
	assert.Equal(t, ReasonUndershoot, cfg.Reason)

	assert.Equal(t, 1, summary.Tested)
	assert.Equal(t, 1, summary.Emitted)
	assert.Equal(t, 0, summary.SkippedTotal())
	assert.NotEmpty(t, summary.RunID)
}

func TestGenerate_I89InnerGlassIsFlipped(t *testing.T) {
	provider := testProvider()
	provider[105] = igsdb.Metadata{ThicknessMM: 3.0, Manufacturer: "Generic",
		Coating:    &model.Coating{Side: model.SideFront, Name: "LoE-i89"},
		Emissivity: fptr(0.15)}

	enum := New(defaultRuleSet(t), provider, nil)
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, false, false),
		glass(200, false, true, false, false),
		glass(105, false, false, true, false),
	})

	configs, _, err := enum.Generate(context.Background(), cats,
		singleTarget(1.0), airOnly, []model.AssemblyType{model.Triple})
	require.NoError(t, err)
	require.Len(t, configs, 1)

	// Front-coated i89 inner glass flips so the coating faces the room.
	assert.Equal(t, []bool{false, false, true}, configs[0].Flips)
}

func TestGenerate_QuadRejectsDoubleCoatedProtectedCavity(t *testing.T) {
	enum := New(defaultRuleSet(t), testProvider(), nil)
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, true, false),
		glass(201, false, true, false, false), // coated center
		glass(300, false, false, false, true), // coated quad-inner
	})

	configs, summary, err := enum.Generate(context.Background(), cats,
		singleTarget(1.5), airOnly, []model.AssemblyType{model.Quad})
	require.NoError(t, err)

	assert.Empty(t, configs)
	assert.Positive(t, summary.Skipped[SkipCenterRule])
}

func TestGenerate_QuadSkipsSmallTargets(t *testing.T) {
	enum := New(defaultRuleSet(t), testProvider(), nil)
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, true, false),
		glass(200, false, true, false, true),
	})

	// 0.70" is at or below the quad floor; nothing is even tested.
	_, summary, err := enum.Generate(context.Background(), cats,
		singleTarget(0.70), airOnly, []model.AssemblyType{model.Quad})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Tested)
	assert.Equal(t, 0, summary.Emitted)
}

func TestGenerate_ValidationGateTallies(t *testing.T) {
	cases := []struct {
		name    string
		records []model.GlassRecord
		skip    string
	}{
		{
			name: "edge symmetry",
			records: []model.GlassRecord{
				glass(100, true, false, false, false),
				glass(200, false, true, false, false),
				glass(102, false, false, true, false),
			},
			skip: SkipEdgeSymmetry,
		},
		{
			name: "manufacturer mismatch",
			records: []model.GlassRecord{
				glass(103, true, false, false, false),
				glass(200, false, true, false, false),
				glass(104, false, false, true, false),
			},
			skip: SkipManufacturer,
		},
		{
			name: "center too thick",
			records: []model.GlassRecord{
				glass(100, true, false, true, false),
				glass(202, false, true, false, false),
			},
			skip: SkipCenterRule,
		},
		{
			name: "low-e ordering",
			records: []model.GlassRecord{
				glass(101, true, false, false, false), // coated outer
				glass(200, false, true, false, false),
				glass(100, false, false, true, false), // uncoated inner
			},
			skip: SkipLowEOrdering,
		},
		{
			name: "same coated glass twice",
			records: []model.GlassRecord{
				glass(101, true, false, true, false),
				glass(200, false, true, false, false),
			},
			skip: SkipCoatingConflict,
		},
		{
			name: "unknown metadata",
			records: []model.GlassRecord{
				glass(999, true, false, false, false),
				glass(200, false, true, false, false),
				glass(100, false, false, true, false),
			},
			skip: SkipMetadata,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enum := New(defaultRuleSet(t), testProvider(), nil)
			configs, summary, err := enum.Generate(context.Background(),
				SplitCatalogs(tc.records), singleTarget(1.0), airOnly,
				[]model.AssemblyType{model.Triple})
			require.NoError(t, err)
			assert.Empty(t, configs, "zero results is a valid outcome")
			assert.Positive(t, summary.Skipped[tc.skip])
		})
	}
}

func TestGenerate_MetadataMissIsCountedOnce(t *testing.T) {
	enum := New(defaultRuleSet(t), testProvider(), nil)
	cats := SplitCatalogs([]model.GlassRecord{
		glass(999, true, false, true, false),
		glass(200, false, true, false, false),
	})

	_, summary, err := enum.Generate(context.Background(), cats,
		singleTarget(1.0), airOnly, []model.AssemblyType{model.Triple})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MetadataMisses, "memoized: one miss per distinct id")
	assert.Positive(t, summary.Skipped[SkipMetadata])
}

func TestGenerate_StructuralProblemsAreErrors(t *testing.T) {
	enum := New(defaultRuleSet(t), testProvider(), nil)
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, true, false),
		glass(200, false, true, false, false),
	})
	targets := singleTarget(1.0)
	triple := []model.AssemblyType{model.Triple}

	_, _, err := enum.Generate(context.Background(), cats, nil, airOnly, triple)
	assert.Error(t, err, "no targets")

	_, _, err = enum.Generate(context.Background(), cats, targets, nil, triple)
	assert.Error(t, err, "no gases")

	_, _, err = enum.Generate(context.Background(), cats, targets, airOnly, nil)
	assert.Error(t, err, "no assemblies")

	_, _, err = enum.Generate(context.Background(), cats, targets, airOnly,
		[]model.AssemblyType{model.Quad})
	assert.Error(t, err, "quad requested without quad-inner candidates")

	_, _, err = enum.Generate(context.Background(), Catalogs{}, targets, airOnly, triple)
	assert.Error(t, err, "empty catalog")
}

func TestGenerate_InvalidConstantsFailFast(t *testing.T) {
	rs := defaultRuleSet(t)
	rs.Constants.StandardGapsMM = nil
	enum := New(rs, testProvider(), nil)

	_, _, err := enum.Generate(context.Background(),
		SplitCatalogs([]model.GlassRecord{
			glass(100, true, true, true, false),
		}),
		singleTarget(1.0), airOnly, []model.AssemblyType{model.Triple})
	assert.Error(t, err)
}

func TestGenerate_MaxResultsCapPerType(t *testing.T) {
	rs := defaultRuleSet(t)
	rs.Constants.MaxResultsPerType = 1
	enum := New(rs, testProvider(), nil)

	// Two centers produce two valid triples without the cap.
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, true, false),
		glass(200, false, true, false, false),
		glass(201, false, true, false, false),
	})

	configs, _, err := enum.Generate(context.Background(), cats,
		singleTarget(1.0), airOnly, []model.AssemblyType{model.Triple})
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}

func TestGenerate_CanceledContextReturnsPartialState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enum := New(defaultRuleSet(t), testProvider(), nil)
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, true, false),
		glass(200, false, true, false, false),
	})

	_, _, err := enum.Generate(ctx, cats, singleTarget(1.0), airOnly,
		[]model.AssemblyType{model.Triple})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitCatalogs_MultiRoleGlass(t *testing.T) {
	cats := SplitCatalogs([]model.GlassRecord{
		glass(100, true, false, true, false),
		glass(200, false, true, false, true),
		{ID: 300}, // no capabilities: appears nowhere
	})

	assert.Len(t, cats.Outer, 1)
	assert.Len(t, cats.Inner, 1)
	assert.Len(t, cats.Center, 1)
	assert.Len(t, cats.QuadInner, 1)
}
