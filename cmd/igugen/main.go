// igugen — IGU Configuration Generator
//
// Enumerates triple and quad insulated-glass-unit configurations from a
// glass catalog, a list of overall-thickness targets, and a list of gas
// fills, applying the manufacturing rule set and writing the surviving
// configurations to CSV/XLSX along with an optional PDF report and
// QR-coded production labels.
//
// Build:
//   go build -o igugen ./cmd/igugen
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mrbar76/ALPENSIMULATOR/internal/engine"
	"github.com/mrbar76/ALPENSIMULATOR/internal/export"
	"github.com/mrbar76/ALPENSIMULATOR/internal/igsdb"
	"github.com/mrbar76/ALPENSIMULATOR/internal/importer"
	"github.com/mrbar76/ALPENSIMULATOR/internal/model"
	"github.com/mrbar76/ALPENSIMULATOR/internal/rules"
)

func main() {
	var (
		catalogPath = flag.String("catalog", "glass_catalog.csv", "glass catalog file (CSV or XLSX)")
		oaPath      = flag.String("oa", "oa_targets.csv", "overall-thickness target list (CSV or XLSX)")
		gasPath     = flag.String("gas", "gas_types.csv", "gas fill list (CSV or XLSX)")
		configDir   = flag.String("config-dir", "config", "directory holding the layered rule YAML files")
		csvOut      = flag.String("out", "igu_configurations.csv", "output CSV path")
		xlsxOut     = flag.String("xlsx", "", "optional output XLSX path")
		reportOut   = flag.String("report", "", "optional PDF run report path")
		labelsOut   = flag.String("labels", "", "optional PDF production label sheet path")
		assembly    = flag.String("assembly", "both", "assembly types to generate: triple, quad, or both")
		maxResults  = flag.Int("max-results", 0, "cap on emitted configurations per assembly type (0 = rule file / unlimited)")
		cacheDir    = flag.String("cache-dir", ".igsdb_cache", "glass metadata disk cache directory")
		offline     = flag.Bool("offline", false, "never contact the metadata service; serve from cache only")
		apiKey      = flag.String("api-key", "", "metadata service API token (falls back to IGSDB_API_KEY)")
		logMode     = flag.String("log", "dev", "log mode: dev or prod")
	)
	flag.Parse()

	log, err := newLogger(*logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log.Sugar(), options{
		catalogPath: *catalogPath,
		oaPath:      *oaPath,
		gasPath:     *gasPath,
		configDir:   *configDir,
		csvOut:      *csvOut,
		xlsxOut:     *xlsxOut,
		reportOut:   *reportOut,
		labelsOut:   *labelsOut,
		assembly:    *assembly,
		maxResults:  *maxResults,
		cacheDir:    *cacheDir,
		offline:     *offline,
		apiKey:      *apiKey,
	}); err != nil {
		log.Sugar().Errorf("run failed: %v", err)
		os.Exit(1)
	}
}

type options struct {
	catalogPath string
	oaPath      string
	gasPath     string
	configDir   string
	csvOut      string
	xlsxOut     string
	reportOut   string
	labelsOut   string
	assembly    string
	maxResults  int
	cacheDir    string
	offline     bool
	apiKey      string
}

func run(log *zap.SugaredLogger, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	assemblies, err := parseAssemblies(opts.assembly)
	if err != nil {
		return err
	}

	store, err := rules.Open(opts.configDir, log)
	if err != nil {
		return fmt.Errorf("open rule config: %w", err)
	}
	if opts.maxResults > 0 {
		store.SetRuntime("generation.max_results_per_type", opts.maxResults)
	}
	rs := store.Resolve()

	catalog := importer.ImportGlassCatalog(opts.catalogPath)
	reportIssues(log, "catalog", catalog.Errors, catalog.Warnings)
	oa := importer.ImportOATargets(opts.oaPath)
	reportIssues(log, "oa targets", oa.Errors, oa.Warnings)
	gas := importer.ImportGasTypes(opts.gasPath)
	reportIssues(log, "gas types", gas.Errors, gas.Warnings)

	gases := enrichGases(gas.Gases, rs)
	cats := engine.SplitCatalogs(catalog.Glass)
	provider := buildProvider(opts)

	enum := engine.New(rs, provider, log)
	configs, summary, genErr := enum.Generate(ctx, cats, oa.Targets, gases, assemblies)

	log.Infow("generation finished",
		"run_id", summary.RunID,
		"tested", summary.Tested,
		"skipped", summary.SkippedTotal(),
		"emitted", summary.Emitted,
		"lookups", summary.UpstreamCalls,
		"metadata_misses", summary.MetadataMisses,
		"elapsed", summary.Elapsed,
	)
	for reason, n := range summary.Skipped {
		log.Infow("rejections", "rule", reason, "count", n)
	}
	if genErr != nil {
		if ctx.Err() != nil {
			log.Warnw("generation interrupted; writing partial results", "error", genErr)
		} else {
			return genErr
		}
	}

	if err := writeOutputs(log, opts, configs, summary, rs); err != nil {
		return err
	}
	return nil
}

func writeOutputs(log *zap.SugaredLogger, opts options, configs []model.Configuration, summary engine.Summary, rs rules.RuleSet) error {
	if opts.csvOut != "" {
		if err := export.WriteCSV(opts.csvOut, configs); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		log.Infow("wrote configurations", "path", opts.csvOut, "count", len(configs))
	}
	if opts.xlsxOut != "" {
		if err := export.WriteXLSX(opts.xlsxOut, configs); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		log.Infow("wrote workbook", "path", opts.xlsxOut)
	}
	if opts.reportOut != "" {
		if err := export.WriteReport(opts.reportOut, summary, rs.Constants, configs); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Infow("wrote report", "path", opts.reportOut)
	}
	if opts.labelsOut != "" {
		if len(configs) == 0 {
			log.Warnw("skipping labels, no configurations emitted", "path", opts.labelsOut)
		} else if err := export.WriteLabels(opts.labelsOut, configs); err != nil {
			return fmt.Errorf("write labels: %w", err)
		} else {
			log.Infow("wrote labels", "path", opts.labelsOut)
		}
	}
	return nil
}

func newLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func parseAssemblies(s string) ([]model.AssemblyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "triple":
		return []model.AssemblyType{model.Triple}, nil
	case "quad":
		return []model.AssemblyType{model.Quad}, nil
	case "both", "":
		return []model.AssemblyType{model.Triple, model.Quad}, nil
	}
	return nil, fmt.Errorf("unknown assembly selection %q (want triple, quad, or both)", s)
}

// enrichGases fills in thermal properties from the rule set for gases the
// input list names only by name. Gases absent from the rule set pass through
// untouched; the generator only keys on the name.
func enrichGases(gases []model.GasFill, rs rules.RuleSet) []model.GasFill {
	out := make([]model.GasFill, 0, len(gases))
	for _, g := range gases {
		if known, ok := rs.Gases[strings.ToLower(g.Name)]; ok {
			known.Name = g.Name
			out = append(out, known)
			continue
		}
		out = append(out, g)
	}
	return out
}

func buildProvider(opts options) igsdb.Provider {
	if opts.offline {
		cache := igsdb.NewDiskCache(opts.cacheDir, nil)
		return cache
	}
	key := opts.apiKey
	if key == "" {
		key = os.Getenv("IGSDB_API_KEY")
	}
	client := igsdb.NewClient(key)
	if opts.cacheDir == "" {
		return client
	}
	return igsdb.NewDiskCache(opts.cacheDir, client)
}

func reportIssues(log *zap.SugaredLogger, source string, errors, warnings []string) {
	for _, w := range warnings {
		log.Warnw("import warning", "source", source, "detail", w)
	}
	for _, e := range errors {
		log.Errorw("import error", "source", source, "detail", e)
	}
}
