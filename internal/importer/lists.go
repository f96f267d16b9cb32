package importer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
)

// OAResult holds the outcome of an outer-size target list import.
type OAResult struct {
	Targets  []model.OATarget
	Errors   []string
	Warnings []string
}

// GasResult holds the outcome of a gas type list import.
type GasResult struct {
	Gases    []model.GasFill
	Errors   []string
	Warnings []string
}

var oaAliases = map[string][]string{
	"oa_in": {"oa (in)", "oa_in", "oa in", "inches", "in"},
	"oa_mm": {"oa (mm)", "oa_mm", "oa mm", "millimeters", "mm"},
}

var gasAliases = map[string][]string{
	"gas": {"gas type", "gas_type", "gas", "name", "fill"},
}

// unitMismatchTol is how far the authored millimeter value may drift from
// inches x 25.4 before the row draws a warning. Covers catalog rounding to
// one decimal.
const unitMismatchTol = 0.05

// ImportOATargets reads the outer-size target list (CSV or XLSX). Each row
// carries the size in inches and millimeters; a missing millimeter column is
// derived from inches, and a disagreeing one is kept but flagged.
func ImportOATargets(path string) OAResult {
	rows, errMsg := readRows(path)
	if errMsg != "" {
		return OAResult{Errors: []string{errMsg}}
	}

	result := OAResult{}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	columns := mapColumns(rows[0], oaAliases)
	if columns["oa_in"] < 0 {
		result.Errors = append(result.Errors, "Required column not found in header: OA (in)")
		return result
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		rowLabel := fmt.Sprintf("Line %d", i+1)

		inStr := getCell(row, columns["oa_in"])
		inches, err := strconv.ParseFloat(inStr, 64)
		if err != nil || inches <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: Invalid OA inches '%s'", rowLabel, inStr))
			continue
		}

		mm := inches * model.MMPerInch
		if mmStr := getCell(row, columns["oa_mm"]); mmStr != "" {
			authored, err := strconv.ParseFloat(mmStr, 64)
			if err != nil || authored <= 0 {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: Invalid OA millimeters '%s'", rowLabel, mmStr))
				continue
			}
			if math.Abs(authored-mm) > unitMismatchTol {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: OA %.3fin is %.2fmm, row says %.2fmm", rowLabel, inches, mm, authored))
			}
			mm = authored
		}

		result.Targets = append(result.Targets, model.OATarget{Inches: inches, MM: mm})
	}
	return result
}

// ImportGasTypes reads the gas type list (CSV or XLSX). Thermal attributes
// come from the rule document, not this file.
func ImportGasTypes(path string) GasResult {
	rows, errMsg := readRows(path)
	if errMsg != "" {
		return GasResult{Errors: []string{errMsg}}
	}

	result := GasResult{}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	columns := mapColumns(rows[0], gasAliases)
	if columns["gas"] < 0 {
		result.Errors = append(result.Errors, "Required column not found in header: Gas Type")
		return result
	}

	seen := map[string]bool{}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		name := getCell(row, columns["gas"])
		if name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: Missing gas name", i+1))
			continue
		}
		if seen[name] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Line %d: Duplicate gas type '%s'", i+1, name))
			continue
		}
		seen[name] = true
		result.Gases = append(result.Gases, model.GasFill{Name: name})
	}
	return result
}

func readRows(path string) ([][]string, string) {
	if isExcelPath(path) {
		return readXLSX(path)
	}
	return readCSV(path)
}
