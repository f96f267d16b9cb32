package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mrbar76/ALPENSIMULATOR/internal/engine"
	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
	"github.com/mrbar76/ALPENSIMULATOR/internal/rules"
)

func buildTestConfigs() []model.Configuration {
	return []model.Configuration{
		{
			Assembly: model.Triple,
			Target:   model.OATarget{Inches: 1.000, MM: 25.4},
			ActualMM: 25.0, ActualIn: 25.0 / 25.4, DeltaMM: -0.4,
			Gas:      "Argon",
			GlassIDs: []int{102271, 5003, 102272},
			Flips:    []bool{false, false, true},
			GapsMM:   []float64{9, 9},
			Reason:   "Preferred undershoot among near-equal options",
		},
		{
			Assembly: model.Quad,
			Target:   model.OATarget{Inches: 1.750, MM: 44.45},
			ActualMM: 44.0, ActualIn: 44.0 / 25.4, DeltaMM: -0.45,
			Gas:      "Krypton",
			GlassIDs: []int{102271, 5003, 5004, 102272},
			Flips:    []bool{false, true, false, false},
			GapsMM:   []float64{12, 12, 12},
			Reason:   "Preferred undershoot among near-equal options",
		},
	}
}

func TestRow_TripleLeavesQuadSlotsBlank(t *testing.T) {
	row := Row(buildTestConfigs()[0])
	if len(row) != len(Header) {
		t.Fatalf("row width %d != header width %d", len(row), len(Header))
	}
	if row[0] != "Triple" || row[6] != "Argon" {
		t.Errorf("type/gas wrong: %v", row)
	}
	if row[10] != "" {
		t.Errorf("glass 4 slot must stay blank for triples, got %q", row[10])
	}
	if row[14] != "" || row[17] != "" {
		t.Errorf("flip 4 and gap 3 slots must stay blank for triples: %v", row)
	}
	if row[11] != "false" || row[13] != "true" {
		t.Errorf("flip flags wrong: %v", row)
	}
	if row[15] != "9.00" {
		t.Errorf("gap formatting wrong: %q", row[15])
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs.csv")
	if err := WriteCSV(path, buildTestConfigs()); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != Header[0] {
		t.Errorf("header mismatch: %v", rows[0])
	}
	if rows[2][0] != "Quad" || rows[2][10] != "102272" {
		t.Errorf("quad row wrong: %v", rows[2])
	}
}

func TestWriteCSV_EmptySetIsHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := WriteCSV(path, nil); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a header-only file, got %d rows", len(rows))
	}
}

func TestWriteXLSX_CreatesReadableWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs.xlsx")
	if err := WriteXLSX(path, buildTestConfigs()); err != nil {
		t.Fatalf("WriteXLSX returned error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Configurations")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "Triple" {
		t.Errorf("first data row wrong: %v", rows[1])
	}
}

func TestWriteReport_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	summary := engine.Summary{
		RunID:   "ab12cd34",
		Tested:  120,
		Emitted: 2,
		Skipped: map[string]int{"edge_symmetry": 80, "metadata": 38},
		Elapsed: 250 * time.Millisecond,
	}

	err := WriteReport(path, summary, rules.DefaultConstants(), buildTestConfigs())
	if err != nil {
		t.Fatalf("WriteReport returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("report file is empty")
	}
}

func TestWriteReport_ZeroResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	summary := engine.Summary{RunID: "ab12cd34", Tested: 10, Skipped: map[string]int{"metadata": 10}}

	if err := WriteReport(path, summary, rules.DefaultConstants(), nil); err != nil {
		t.Fatalf("WriteReport returned error: %v", err)
	}
}

func TestWriteLabels_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")

	if err := WriteLabels(path, buildTestConfigs()); err != nil {
		t.Fatalf("WriteLabels returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("label sheet is empty")
	}
}

func TestWriteLabels_EmptySetIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")
	if err := WriteLabels(path, nil); err == nil {
		t.Fatal("expected an error for an empty configuration set")
	}
}
