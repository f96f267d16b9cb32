// Package export writes emitted IGU configurations to the formats the
// downstream simulation and the production floor consume: the solver input
// table (CSV or XLSX), a PDF run report, and QR-coded production labels.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// Header is the solver input table's column layout. Slot columns for the
// fourth pane and third gap stay blank for triples.
var Header = []string{
	"IGU Type",
	"OA (in)", "OA (mm)",
	"Actual OA (in)", "Actual OA (mm)", "OA Delta (mm)",
	"Gas Type",
	"Glass 1 NFRC ID", "Glass 2 NFRC ID", "Glass 3 NFRC ID", "Glass 4 NFRC ID",
	"Flip Glass 1", "Flip Glass 2", "Flip Glass 3", "Flip Glass 4",
	"Gap 1 (mm)", "Gap 2 (mm)", "Gap 3 (mm)",
	"Selection Reason",
}

// Row flattens one configuration into the table layout.
func Row(c model.Configuration) []string {
	row := []string{
		c.Assembly.String(),
		fmt.Sprintf("%.3f", c.Target.Inches),
		fmt.Sprintf("%.2f", c.Target.MM),
		fmt.Sprintf("%.3f", c.ActualIn),
		fmt.Sprintf("%.2f", c.ActualMM),
		fmt.Sprintf("%.2f", c.DeltaMM),
		c.Gas,
	}
	for slot := 0; slot < 4; slot++ {
		if slot < len(c.GlassIDs) {
			row = append(row, strconv.Itoa(c.GlassIDs[slot]))
		} else {
			row = append(row, "")
		}
	}
	for slot := 0; slot < 4; slot++ {
		if slot < len(c.Flips) {
			row = append(row, strconv.FormatBool(c.Flips[slot]))
		} else {
			row = append(row, "")
		}
	}
	for slot := 0; slot < 3; slot++ {
		if slot < len(c.GapsMM) {
			row = append(row, fmt.Sprintf("%.2f", c.GapsMM[slot]))
		} else {
			row = append(row, "")
		}
	}
	return append(row, c.Reason)
}

// WriteCSV writes the configuration table to path. An empty configuration
// set still produces a header-only file: zero results is a valid outcome.
func WriteCSV(path string, configs []model.Configuration) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range configs {
		if err := w.Write(Row(c)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes the configuration table to an Excel workbook.
func WriteXLSX(path string, configs []model.Configuration) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Configurations"
	f.SetSheetName(f.GetSheetName(0), sheet)

	writeRow := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(sheet, cell, &cells)
	}

	if err := writeRow(1, Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range configs {
		if err := writeRow(i+2, Row(c)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
