package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
	"github.com/mrbar76/ALPENSIMULATOR/internal/rules"
)

func defaultRuleSet(t *testing.T) rules.RuleSet {
	t.Helper()
	store, err := rules.Open(t.TempDir(), nil)
	require.NoError(t, err)
	return store.Resolve()
}

func TestShouldFlip_UncoatedNeverFlips(t *testing.T) {
	r := NewFlipResolver(defaultRuleSet(t), nil)

	assert.False(t, r.ShouldFlip(model.Triple, model.PositionOuter, nil))
	assert.False(t, r.ShouldFlip(model.Triple, model.PositionInner,
		&model.Coating{Side: model.SideNone, Name: "phantom"}))
}

func TestShouldFlip_StandardTables(t *testing.T) {
	r := NewFlipResolver(defaultRuleSet(t), nil)

	front := &model.Coating{Side: model.SideFront, Name: "LoE-366"}
	back := &model.Coating{Side: model.SideBack, Name: "LoE-366"}

	// Outer, center, and quad-inner flip front-coated panes.
	for _, pos := range []model.Position{model.PositionOuter, model.PositionCenter, model.PositionQuadInner} {
		assert.True(t, r.ShouldFlip(model.Triple, pos, front), "%s front", pos)
		assert.False(t, r.ShouldFlip(model.Triple, pos, back), "%s back", pos)
	}

	// Inner is the mirror case: its target surface faces the room side.
	assert.False(t, r.ShouldFlip(model.Triple, model.PositionInner, front))
	assert.True(t, r.ShouldFlip(model.Triple, model.PositionInner, back))
}

func TestShouldFlip_I89UsesDedicatedTable(t *testing.T) {
	r := NewFlipResolver(defaultRuleSet(t), nil)

	i89Front := &model.Coating{Side: model.SideFront, Name: "LoE-i89"}
	i89Back := &model.Coating{Side: model.SideBack, Name: "LoE-i89"}

	// On the inner pane, i89 bypasses the generic inner rule.
	assert.True(t, r.ShouldFlip(model.Triple, model.PositionInner, i89Front))
	assert.False(t, r.ShouldFlip(model.Triple, model.PositionInner, i89Back))
	assert.True(t, r.ShouldFlip(model.Quad, model.PositionInner, i89Front))
	assert.False(t, r.ShouldFlip(model.Quad, model.PositionInner, i89Back))

	// i89 on a non-inner position follows the ordinary table.
	assert.True(t, r.ShouldFlip(model.Triple, model.PositionOuter, i89Front))
}

func TestShouldFlip_UnknownPositionDefaultsToNoFlip(t *testing.T) {
	r := NewFlipResolver(defaultRuleSet(t), nil)

	coating := &model.Coating{Side: model.SideFront, Name: "LoE-272"}
	assert.False(t, r.ShouldFlip(model.Triple, model.Position(99), coating))
}

func TestLayerFlip_CatalogOverrideBypassesResolver(t *testing.T) {
	r := NewFlipResolver(defaultRuleSet(t), nil)

	keep := false
	force := true
	front := &model.Coating{Side: model.SideFront, Name: "LoE-366"}

	// The table says flip, the catalog says keep.
	g := model.GlassRecord{ID: 100, FlipOuter: &keep}
	assert.False(t, r.LayerFlip(model.Triple, model.PositionOuter, g, front))

	// The table says keep (uncoated), the catalog says flip.
	g = model.GlassRecord{ID: 101, FlipInner: &force}
	assert.True(t, r.LayerFlip(model.Triple, model.PositionInner, g, nil))

	// No override for the position in play: resolver decides.
	g = model.GlassRecord{ID: 102, FlipInner: &keep}
	assert.True(t, r.LayerFlip(model.Triple, model.PositionOuter, g, front))
}
