package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/detentsh/testgate/internal/aggregator"
	"github.com/detentsh/testgate/internal/audits/compilation"
	"github.com/detentsh/testgate/internal/audits/coverage"
	"github.com/detentsh/testgate/internal/audits/detekt"
	"github.com/detentsh/testgate/internal/audits/fixtures"
	"github.com/detentsh/testgate/internal/audits/harness"
	"github.com/detentsh/testgate/internal/audits/lint"
	"github.com/detentsh/testgate/internal/audits/sqlfts"
	"github.com/detentsh/testgate/internal/audits/structure"
	"github.com/detentsh/testgate/internal/audits/tests"
	"github.com/detentsh/testgate/internal/audits/teststack"
	"github.com/detentsh/testgate/internal/config"
	"github.com/detentsh/testgate/internal/runner"
	"github.com/detentsh/testgate/internal/upload"
)

// Conventional report locations, relative to a module's directory.
// Overridable with the matching flag.
const (
	defaultDetektReport   = "build/reports/detekt/detekt.xml"
	defaultLintReport     = "build/reports/lint-results-debug.xml"
	defaultCoverageReport = "build/reports/jacoco/testDebugUnitTestReport/testDebugUnitTestReport.xml"
	defaultTestsDir       = "build/test-results/testDebugUnitTest"
)

var runFlags struct {
	modules                 []string
	reportPath              string
	detektReport            string
	lintReport              string
	coverageReport          string
	testsDir                string
	testsTaskNames          string
	harnessCoordinate       string
	rootPackage             string
	harnessPackagePrefix    string
	dataHelpers             string
	syncHelpers             string
	uiHelpers               string
	crossLayerHelpers       string
	harnessWhitelist        string
	instrumentedRootPackage string
	compilationLog          string
	uploadURL               string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every audit against the given modules and write the aggregated report",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringArrayVar(&runFlags.modules, "module", nil, "module directory to audit (repeatable)")
	f.StringVar(&runFlags.reportPath, "report", "build/testgate-report.json", "path to write the aggregated JSON report")
	f.StringVar(&runFlags.detektReport, "detekt-report", defaultDetektReport, "detekt XML report, relative to each module")
	f.StringVar(&runFlags.lintReport, "lint-report", defaultLintReport, "android lint XML report, relative to each module")
	f.StringVar(&runFlags.coverageReport, "coverage-report", defaultCoverageReport, "jacoco XML report, relative to each module")
	f.StringVar(&runFlags.testsDir, "tests-dir", defaultTestsDir, "JUnit XML results directory, relative to each module")
	f.StringVar(&runFlags.testsTaskNames, "tests-task-names", "", "comma-separated test task names, for a missing-results error message")
	f.StringVar(&runFlags.harnessCoordinate, "harness-coordinate", "", "build-file dependency coordinate the harness audits require")
	f.StringVar(&runFlags.rootPackage, "root-package", "", "root FQCN package a test file's area is derived from")
	f.StringVar(&runFlags.harnessPackagePrefix, "harness-package-prefix", "", "FQCN prefix of the harness package, exempted from the local-helper-clone rule")
	f.StringVar(&runFlags.dataHelpers, "data-helpers", "", "comma-separated FQCN patterns for the data-area helper set")
	f.StringVar(&runFlags.syncHelpers, "sync-helpers", "", "comma-separated FQCN patterns for the sync-area helper set")
	f.StringVar(&runFlags.uiHelpers, "ui-helpers", "", "comma-separated FQCN patterns for the ui-area helper set")
	f.StringVar(&runFlags.crossLayerHelpers, "cross-layer-helpers", "", "comma-separated FQCN patterns for helpers shared across areas (Rule B only)")
	f.StringVar(&runFlags.harnessWhitelist, "harness-whitelist", "", "comma-separated FQCN/glob patterns exempted from the harness reuse-isolation rules")
	f.StringVar(&runFlags.instrumentedRootPackage, "instrumented-root-package", "", "root FQCN package scoping the instrumented-test tolerance check")
	f.StringVar(&runFlags.compilationLog, "compilation-log", "", "file containing captured compiler stderr (omit to skip CompilationAudit)")
	f.StringVar(&runFlags.uploadURL, "upload-url", "", "override testgate.yml's uploadUrl")

	_ = runCmd.MarkFlagRequired("module")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	uploadURL := cfg.UploadURL
	if runFlags.uploadURL != "" {
		uploadURL = runFlags.uploadURL
	}
	uploadEnabled := cfg.UploadEnabled != nil && *cfg.UploadEnabled && uploadURL != ""

	var uploader aggregator.Uploader
	if uploadEnabled {
		uploader = upload.NewHTTPUploader(uploadURL)
	}

	agg := aggregator.New(runFlags.reportPath, uploader, uploadEnabled, logger)
	r := runner.New(agg, logger)

	var named []runner.NamedAudit
	for _, module := range runFlags.modules {
		named = append(named, audits(cfg, module)...)
	}

	if err := r.Run(named); err != nil {
		return fmt.Errorf("running audits: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), runner.Summary(agg.Snapshot()))

	if err := agg.Finalize(); err != nil {
		return err
	}
	return nil
}

// audits builds the NamedAudit list for one module from cfg and the run
// flags. CompilationAudit is only included when --compilation-log was
// given, since the build-tool glue that would otherwise feed its capture
// buffer live is out of scope for this core.
func audits(cfg config.Config, module string) []runner.NamedAudit {
	list := []runner.NamedAudit{
		{Label: module + ":" + detekt.Name, Audit: detekt.New(detekt.Config{
			Module:            module,
			ReportPath:        filepath.Join(module, runFlags.detektReport),
			TolerancePercent:  cfg.Detekt.TolerancePercent,
			WhitelistPatterns: cfg.Detekt.Whitelist.Patterns,
			HardFailRuleIDs:   cfg.Detekt.HardFailRuleIDs,
		})},
		{Label: module + ":" + lint.Name, Audit: lint.New(lint.Config{
			Module:            module,
			ReportPath:        filepath.Join(module, runFlags.lintReport),
			TolerancePercent:  cfg.Lint.TolerancePercent,
			WhitelistPatterns: cfg.Lint.Whitelist.Patterns,
		})},
		{Label: module + ":" + sqlfts.Name, Audit: sqlfts.New(sqlfts.Config{
			Module:            module,
			TolerancePercent:  cfg.SqlFts.TolerancePercent,
			WhitelistPatterns: cfg.SqlFts.Whitelist.Patterns,
		})},
		{Label: module + ":" + structure.Name, Audit: structure.New(structure.Config{
			Module:                       module,
			HarnessCoordinate:            runFlags.harnessCoordinate,
			InstrumentedRootPackage:      runFlags.instrumentedRootPackage,
			InstrumentedAllowList:        cfg.Structure.InstrumentedAllowList,
			InstrumentedTolerancePercent: cfg.Structure.InstrumentedTolerancePercent,
		})},
		{Label: module + ":" + harness.Name, Audit: harness.New(harness.Config{
			Module:               module,
			RootPackage:          runFlags.rootPackage,
			HarnessPackagePrefix: runFlags.harnessPackagePrefix,
			DataHelpers:          splitCSV(runFlags.dataHelpers),
			SyncHelpers:          splitCSV(runFlags.syncHelpers),
			UIHelpers:            splitCSV(runFlags.uiHelpers),
			CrossLayerHelpers:    splitCSV(runFlags.crossLayerHelpers),
			WhitelistPatterns:    splitCSV(runFlags.harnessWhitelist),
		})},
		{Label: module + ":" + teststack.Name, Audit: teststack.New(teststack.Config{
			Module:            module,
			WhitelistPatterns: cfg.Stack.Whitelist.Files,
		})},
		{Label: module + ":" + fixtures.Name, Audit: fixtures.New(fixtures.Config{
			Module:            module,
			TolerancePercent:  cfg.Fixtures.TolerancePercent,
			MinBytes:          cfg.Fixtures.MinBytes,
			MaxBytes:          cfg.Fixtures.MaxBytes,
			WhitelistPatterns: cfg.Fixtures.Whitelist.Patterns,
		})},
		{Label: module + ":" + tests.Name, Audit: tests.New(tests.Config{
			Module:            module,
			ResultsDir:        filepath.Join(module, runFlags.testsDir),
			TolerancePercent:  cfg.Tests.TolerancePercent,
			WhitelistPatterns: cfg.Tests.Whitelist.Patterns,
			TaskNames:         splitCSV(runFlags.testsTaskNames),
		})},
		{Label: module + ":" + coverage.Name, Audit: coverage.New(coverage.Config{
			Module:            module,
			ReportPath:        filepath.Join(module, runFlags.coverageReport),
			MinPercent:        cfg.Coverage.Branches.MinPercent,
			WhitelistPatterns: cfg.Coverage.Whitelist.Patterns,
		})},
	}

	if runFlags.compilationLog != "" {
		capture := compilation.NewCapture()
		capture.RegisterCapture()
		if data, err := os.ReadFile(runFlags.compilationLog); err == nil {
			capture.Append(string(data))
		}
		capture.UnregisterCapture()
		list = append(list, runner.NamedAudit{
			Label: module + ":" + compilation.Name,
			Audit: compilation.New(compilation.Config{Module: module, Capture: capture}),
		})
	}

	return list
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
