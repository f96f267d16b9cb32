package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// LabelInfo holds the data encoded into each configuration label's QR code.
// The payload mirrors the structural identity of the unit so the shop floor
// can scan a label and recover the full build recipe.
type LabelInfo struct {
	Assembly string    `json:"assembly"`
	OAInches float64   `json:"oa_in"`
	ActualMM float64   `json:"actual_mm"`
	Gas      string    `json:"gas"`
	GlassIDs []int     `json:"glass_ids"`
	Flips    []bool    `json:"flips"`
	GapsMM   []float64 `json:"gaps_mm"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows
// per page). Each label cell is approximately 66.7mm x 25.4mm on US Letter.
const (
	labelPageMarginTop  = 12.7 // mm
	labelPageMarginLeft = 4.8  // mm
	labelWidth          = 66.7 // mm per label
	labelHeight         = 25.4 // mm per label
	labelCols           = 3
	labelRows           = 10
	labelsPerPage       = labelCols * labelRows
	qrSize              = 20.0 // QR code size in mm
	labelPadding        = 2.0  // mm internal padding
)

// WriteLabels generates a PDF of QR-coded production labels, one per
// configuration, laid out on a standard label sheet format.
func WriteLabels(path string, configs []model.Configuration) error {
	if len(configs) == 0 {
		return fmt.Errorf("no configurations to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, c := range configs {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelPageMarginLeft + float64(col)*labelWidth
		y := labelPageMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, x, y, i, c); err != nil {
			return fmt.Errorf("failed to render label %d: %w", i+1, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single configuration label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, idx int, c model.Configuration) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	info := LabelInfo{
		Assembly: c.Assembly.String(),
		OAInches: c.Target.Inches,
		ActualMM: c.ActualMM,
		Gas:      c.Gas,
		GlassIDs: c.GlassIDs,
		Flips:    c.Flips,
		GapsMM:   c.GapsMM,
	}
	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_cfg_%d", idx)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	title := fmt.Sprintf("%s %.3f\" %s", c.Assembly, c.Target.Inches, c.Gas)
	if pdf.GetStringWidth(title) > textW {
		for len(title) > 0 && pdf.GetStringWidth(title+"...") > textW {
			title = title[:len(title)-1]
		}
		title += "..."
	}
	pdf.CellFormat(textW, 4.5, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	ids := ""
	for i, id := range c.GlassIDs {
		if i > 0 {
			ids += "/"
		}
		ids += fmt.Sprint(id)
	}
	pdf.CellFormat(textW, 3.5, "Glass "+ids, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	gaps := ""
	for i, g := range c.GapsMM {
		if i > 0 {
			gaps += "/"
		}
		gaps += fmt.Sprintf("%.0f", g)
	}
	detail := fmt.Sprintf("Gaps %s mm | actual %.2f mm (%+.2f)", gaps, c.ActualMM, c.DeltaMM)
	pdf.CellFormat(textW, 3, detail, "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	return nil
}
