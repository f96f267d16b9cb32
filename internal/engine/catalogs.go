package engine

import "github.com/mrbar76/ALPENSIMULATOR/internal/model"

// SplitCatalogs distributes a unified glass catalog into the four position
// candidate sets by capability flag. A glass with several capabilities
// appears in each corresponding set.
func SplitCatalogs(glass []model.GlassRecord) Catalogs {
	var cats Catalogs
	for _, g := range glass {
		if g.CanOuter {
			cats.Outer = append(cats.Outer, g)
		}
		if g.CanQuadInner {
			cats.QuadInner = append(cats.QuadInner, g)
		}
		if g.CanCenter {
			cats.Center = append(cats.Center, g)
		}
		if g.CanInner {
			cats.Inner = append(cats.Inner, g)
		}
	}
	return cats
}
