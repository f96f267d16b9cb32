package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/mrbar76/ALPENSIMULATOR/internal/engine"
	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
	"github.com/mrbar76/ALPENSIMULATOR/internal/rules"
)

// Page layout constants (A4 portrait in mm).
const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	lineHeight   = 6.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// maxReportRows caps the configuration table in the report; the full set
// lives in the CSV/XLSX output.
const maxReportRows = 40

// WriteReport renders a run report PDF: the constants in effect, the
// tested/skipped/emitted tally broken down by rejecting rule, and a preview
// of the emitted configurations sorted by absolute OA deviation.
func WriteReport(path string, summary engine.Summary, c rules.Constants, configs []model.Configuration) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(contentWidth, 10, "IGU Configuration Generation Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(marginLeft)
	pdf.CellFormat(contentWidth, lineHeight,
		fmt.Sprintf("Run %s | elapsed %s", summary.RunID, summary.Elapsed.Round(time.Millisecond)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	sectionTitle(pdf, "Constants")
	constants := []string{
		fmt.Sprintf("Tolerance (TOL): %.2f mm", c.TOL),
		fmt.Sprintf("Min edge nominal: %.2f mm", c.MinEdgeNominal),
		fmt.Sprintf("Min air gap: %.2f mm", c.MinAirGap),
		fmt.Sprintf("Quad OA minimum: %.3f in", c.QuadOAMinInch),
		fmt.Sprintf("Center max thickness: %.2f mm", c.CenterMaxThickness),
		fmt.Sprintf("Near-equal band: %.2f mm", c.NearEqualBandMM),
	}
	for _, line := range constants {
		pdf.SetX(marginLeft)
		pdf.CellFormat(contentWidth, lineHeight, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	sectionTitle(pdf, "Outcome")
	pdf.SetX(marginLeft)
	pdf.CellFormat(contentWidth, lineHeight,
		fmt.Sprintf("Combinations tested: %d | skipped: %d | emitted: %d",
			summary.Tested, summary.SkippedTotal(), summary.Emitted), "", 1, "L", false, 0, "")
	pdf.SetX(marginLeft)
	pdf.CellFormat(contentWidth, lineHeight,
		fmt.Sprintf("Catalog lookups: %d | metadata misses: %d",
			summary.UpstreamCalls, summary.MetadataMisses), "", 1, "L", false, 0, "")

	reasons := make([]string, 0, len(summary.Skipped))
	for reason := range summary.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		pdf.SetX(marginLeft + 5)
		pdf.CellFormat(contentWidth-5, lineHeight,
			fmt.Sprintf("rejected by %s: %d", reason, summary.Skipped[reason]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	sectionTitle(pdf, "Emitted Configurations")
	if len(configs) == 0 {
		pdf.SetX(marginLeft)
		pdf.CellFormat(contentWidth, lineHeight, "No combination satisfied the manufacturing rules.", "", 1, "L", false, 0, "")
	} else {
		renderConfigTable(pdf, configs)
	}

	return pdf.OutputFileAndClose(path)
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetX(marginLeft)
	pdf.CellFormat(contentWidth, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func renderConfigTable(pdf *fpdf.Fpdf, configs []model.Configuration) {
	ordered := make([]model.Configuration, len(configs))
	copy(ordered, configs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return abs(ordered[i].DeltaMM) < abs(ordered[j].DeltaMM)
	})
	if len(ordered) > maxReportRows {
		ordered = ordered[:maxReportRows]
	}

	colWidths := []float64{18, 20, 22, 18, 18, 54, 30}
	headers := []string{"Type", "OA (in)", "Actual (mm)", "Delta", "Gas", "Glass IDs", "Gaps (mm)"}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetX(marginLeft)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 6, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, c := range ordered {
		ids := ""
		for i, id := range c.GlassIDs {
			if i > 0 {
				ids += " / "
			}
			ids += fmt.Sprint(id)
		}
		gaps := ""
		for i, g := range c.GapsMM {
			if i > 0 {
				gaps += " / "
			}
			gaps += fmt.Sprintf("%.0f", g)
		}
		cells := []string{
			c.Assembly.String(),
			fmt.Sprintf("%.3f", c.Target.Inches),
			fmt.Sprintf("%.2f", c.ActualMM),
			fmt.Sprintf("%+.2f", c.DeltaMM),
			c.Gas,
			ids,
			gaps,
		}
		pdf.SetX(marginLeft)
		for i, cell := range cells {
			pdf.CellFormat(colWidths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
