// Package importer reads the generator's input files: the unified glass
// catalog with position capabilities and flip overrides, the outer-size
// target list, and the gas type list. CSV delimiters are auto-detected and
// headers are matched case-insensitively against known aliases; bad rows are
// collected as errors or warnings instead of aborting the import.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// CatalogResult holds the outcome of a glass catalog import.
type CatalogResult struct {
	Glass    []model.GlassRecord
	Errors   []string
	Warnings []string
}

// catalogAliases maps canonical column roles to accepted header spellings
// (all lowercase).
var catalogAliases = map[string][]string{
	"id":             {"nfrc_id", "nfrc id", "nfrc", "id", "glass id", "glass_id"},
	"short_name":     {"short_name", "short name", "name", "glass", "description"},
	"can_outer":      {"can_outer", "can outer", "outer"},
	"can_inner":      {"can_inner", "can inner", "inner"},
	"can_center":     {"can_center", "can center", "center"},
	"can_quadinner":  {"can_quadinner", "can_quad_inner", "can quadinner", "can quad inner", "quad_inner", "quadinner"},
	"flip_outer":     {"flip_outer", "flip outer"},
	"flip_inner":     {"flip_inner", "flip inner"},
	"flip_center":    {"flip_center", "flip center"},
	"flip_quadinner": {"flip_quadinner", "flip_quad_inner", "flip quadinner", "flip quad inner"},
	"emissivity":     {"emissivity", "emis", "e"},
}

// DetectCSVDelimiter determines the most likely delimiter by scoring the
// column-count consistency each candidate produces.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}
		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}
		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}
	return bestDelimiter
}

// ImportGlassCatalogCSV reads the unified glass catalog from a CSV file.
func ImportGlassCatalogCSV(path string) CatalogResult {
	rows, errMsg := readCSV(path)
	if errMsg != "" {
		return CatalogResult{Errors: []string{errMsg}}
	}
	return catalogFromRows(rows, "Line")
}

// ImportGlassCatalogXLSX reads the unified glass catalog from the first
// sheet of an Excel workbook.
func ImportGlassCatalogXLSX(path string) CatalogResult {
	rows, errMsg := readXLSX(path)
	if errMsg != "" {
		return CatalogResult{Errors: []string{errMsg}}
	}
	return catalogFromRows(rows, "Row")
}

// ImportGlassCatalog dispatches on the file extension.
func ImportGlassCatalog(path string) CatalogResult {
	if isExcelPath(path) {
		return ImportGlassCatalogXLSX(path)
	}
	return ImportGlassCatalogCSV(path)
}

func catalogFromRows(rows [][]string, rowPrefix string) CatalogResult {
	result := CatalogResult{}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	columns := mapColumns(rows[0], catalogAliases)
	if columns["id"] < 0 {
		result.Errors = append(result.Errors, "Required column not found in header: NFRC_ID")
		return result
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)

		idStr := getCell(row, columns["id"])
		id, err := strconv.Atoi(idStr)
		if err != nil || id <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: Invalid NFRC id '%s'", rowLabel, idStr))
			continue
		}

		g := model.GlassRecord{
			ID:        id,
			ShortName: getCell(row, columns["short_name"]),
		}
		g.CanOuter = parseBoolCell(getCell(row, columns["can_outer"]))
		g.CanInner = parseBoolCell(getCell(row, columns["can_inner"]))
		g.CanCenter = parseBoolCell(getCell(row, columns["can_center"]))
		g.CanQuadInner = parseBoolCell(getCell(row, columns["can_quadinner"]))

		g.FlipOuter = parseOptionalBool(getCell(row, columns["flip_outer"]))
		g.FlipInner = parseOptionalBool(getCell(row, columns["flip_inner"]))
		g.FlipCenter = parseOptionalBool(getCell(row, columns["flip_center"]))
		g.FlipQuadInner = parseOptionalBool(getCell(row, columns["flip_quadinner"]))

		if s := getCell(row, columns["emissivity"]); s != "" {
			if emis, err := strconv.ParseFloat(s, 64); err == nil && emis > 0 {
				g.Emissivity = &emis
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: Invalid emissivity '%s', ignoring", rowLabel, s))
			}
		}

		if !g.CanOuter && !g.CanInner && !g.CanCenter && !g.CanQuadInner {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: Glass %d has no position capability", rowLabel, id))
		}

		result.Glass = append(result.Glass, g)
	}
	return result
}

// mapColumns returns the index of each canonical role in the header row,
// -1 for roles the header does not carry; getCell treats a -1 index as an
// empty cell.
func mapColumns(header []string, aliases map[string][]string) map[string]int {
	columns := make(map[string]int, len(aliases))
	for role := range aliases {
		columns[role] = -1
	}
	for i, cell := range header {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, names := range aliases {
			for _, alias := range names {
				if normalized == alias && columns[role] < 0 {
					columns[role] = i
				}
			}
		}
	}
	return columns
}

func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseBoolCell(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "x":
		return true
	default:
		return false
	}
}

// parseOptionalBool returns nil for blank cells so the coating placement
// resolver stays in charge; any authored value becomes a hard override.
func parseOptionalBool(s string) *bool {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := parseBoolCell(s)
	return &v
}

func readCSV(path string) ([][]string, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Sprintf("Cannot open file: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "File is empty"
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectCSVDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Sprintf("Cannot read CSV: %v", err)
	}
	return rows, ""
}

func readXLSX(path string) ([][]string, string) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Sprintf("Cannot open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "Excel file has no sheets"
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Sprintf("Cannot read Excel data: %v", err)
	}
	return rows, ""
}

func isExcelPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}
