// Package config loads testgate.yml, the single configuration file naming
// every tunable the ten audits accept, and resolves absent keys to the
// documented defaults so no audit package has to guess at its own zero
// value's meaning.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// maxConfigSizeBytes bounds how large a config file we will read, the same
// defense-in-depth posture applied to workflow YAML elsewhere in this
// toolset.
const maxConfigSizeBytes = 1 * 1024 * 1024

// Whitelist carries a set of CSV-style glob/FQCN patterns for one audit's
// scope restriction.
type Whitelist struct {
	Patterns []string `yaml:"patterns"`
}

// DetektConfig is the detekt.* key group.
type DetektConfig struct {
	TolerancePercent int       `yaml:"tolerancePercent"`
	Whitelist        Whitelist `yaml:"whitelist"`
	HardFailRuleIDs  []string  `yaml:"hardFailRuleIds"`
}

// LintConfig is the lint.* key group.
type LintConfig struct {
	TolerancePercent int       `yaml:"tolerancePercent"`
	Whitelist        Whitelist `yaml:"whitelist"`
}

// SqlFtsConfig is the sqlFts.* key group.
type SqlFtsConfig struct {
	TolerancePercent int       `yaml:"tolerancePercent"`
	Whitelist        Whitelist `yaml:"whitelist"`
}

// StructureConfig is the structure.* key group.
type StructureConfig struct {
	InstrumentedAllowList        []string `yaml:"instrumentedAllowList"`
	InstrumentedTolerancePercent int      `yaml:"instrumentedTolerancePercent"`
}

// StackConfig is the stack.* key group (TestStackAudit).
type StackConfig struct {
	Whitelist struct {
		Files []string `yaml:"files"`
	} `yaml:"whitelist"`
}

// FixturesConfig is the fixtures.* key group.
type FixturesConfig struct {
	TolerancePercent int       `yaml:"tolerancePercent"`
	MinBytes         int       `yaml:"minBytes"`
	MaxBytes         int       `yaml:"maxBytes"`
	Whitelist        Whitelist `yaml:"whitelist"`
}

// TestsConfig is the tests.* key group.
type TestsConfig struct {
	TolerancePercent int       `yaml:"tolerancePercent"`
	Whitelist        Whitelist `yaml:"whitelist"`
}

// CoverageConfig is the coverage.* key group.
type CoverageConfig struct {
	Branches struct {
		MinPercent int `yaml:"minPercent"`
	} `yaml:"branches"`
	Whitelist Whitelist `yaml:"whitelist"`
}

// Config is the fully-resolved, zero-guessing view of testgate.yml: every
// field already carries its documented default when the key was absent
// from the file.
type Config struct {
	Detekt        DetektConfig    `yaml:"detekt"`
	Lint          LintConfig      `yaml:"lint"`
	SqlFts        SqlFtsConfig    `yaml:"sqlFts"`
	Structure     StructureConfig `yaml:"structure"`
	Stack         StackConfig     `yaml:"stack"`
	Fixtures      FixturesConfig  `yaml:"fixtures"`
	Tests         TestsConfig     `yaml:"tests"`
	Coverage      CoverageConfig  `yaml:"coverage"`
	UploadEnabled *bool           `yaml:"uploadEnabled"`
	UploadURL     string          `yaml:"uploadUrl"`
}

// defaults holds the documented default for every tunable. Applied after
// unmarshaling into rawConfig, whose pointer fields distinguish an absent
// key from an explicit zero so an explicit `tolerancePercent: 0` is never
// silently overwritten by a non-zero default.
type defaultsTable struct {
	DetektTolerancePercent               int
	LintTolerancePercent                 int
	SqlFtsTolerancePercent               int
	StructureInstrumentedTolerancePercent int
	FixturesTolerancePercent             int
	FixturesMinBytes                     int
	FixturesMaxBytes                     int
	TestsTolerancePercent                int
	CoverageBranchesMinPercent           int
	UploadEnabled                        bool
}

var defaults = defaultsTable{
	DetektTolerancePercent:                10,
	LintTolerancePercent:                  10,
	SqlFtsTolerancePercent:                0,
	StructureInstrumentedTolerancePercent: 0,
	FixturesTolerancePercent:              10,
	FixturesMinBytes:                      256,
	FixturesMaxBytes:                      8192,
	TestsTolerancePercent:                 10,
	CoverageBranchesMinPercent:            70,
	UploadEnabled:                         true,
}

// rawConfig mirrors Config but with pointer ints, so the loader can tell
// "key absent" (nil) apart from "key present with value 0".
type rawConfig struct {
	Detekt struct {
		TolerancePercent *int      `yaml:"tolerancePercent"`
		Whitelist        Whitelist `yaml:"whitelist"`
		HardFailRuleIDs  []string  `yaml:"hardFailRuleIds"`
	} `yaml:"detekt"`
	Lint struct {
		TolerancePercent *int      `yaml:"tolerancePercent"`
		Whitelist        Whitelist `yaml:"whitelist"`
	} `yaml:"lint"`
	SqlFts struct {
		TolerancePercent *int      `yaml:"tolerancePercent"`
		Whitelist        Whitelist `yaml:"whitelist"`
	} `yaml:"sqlFts"`
	Structure struct {
		InstrumentedAllowList        []string `yaml:"instrumentedAllowList"`
		InstrumentedTolerancePercent *int     `yaml:"instrumentedTolerancePercent"`
	} `yaml:"structure"`
	Stack struct {
		Whitelist struct {
			Files []string `yaml:"files"`
		} `yaml:"whitelist"`
	} `yaml:"stack"`
	Fixtures struct {
		TolerancePercent *int      `yaml:"tolerancePercent"`
		MinBytes         *int      `yaml:"minBytes"`
		MaxBytes         *int      `yaml:"maxBytes"`
		Whitelist        Whitelist `yaml:"whitelist"`
	} `yaml:"fixtures"`
	Tests struct {
		TolerancePercent *int      `yaml:"tolerancePercent"`
		Whitelist        Whitelist `yaml:"whitelist"`
	} `yaml:"tests"`
	Coverage struct {
		Branches struct {
			MinPercent *int `yaml:"minPercent"`
		} `yaml:"branches"`
		Whitelist Whitelist `yaml:"whitelist"`
	} `yaml:"coverage"`
	UploadEnabled *bool  `yaml:"uploadEnabled"`
	UploadURL     string `yaml:"uploadUrl"`
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// resolve converts a decoded rawConfig into a fully-defaulted Config.
func resolve(raw rawConfig) Config {
	uploadEnabled := defaults.UploadEnabled
	if raw.UploadEnabled != nil {
		uploadEnabled = *raw.UploadEnabled
	}

	var cfg Config
	cfg.Detekt.TolerancePercent = intOr(raw.Detekt.TolerancePercent, defaults.DetektTolerancePercent)
	cfg.Detekt.Whitelist = raw.Detekt.Whitelist
	cfg.Detekt.HardFailRuleIDs = raw.Detekt.HardFailRuleIDs

	cfg.Lint.TolerancePercent = intOr(raw.Lint.TolerancePercent, defaults.LintTolerancePercent)
	cfg.Lint.Whitelist = raw.Lint.Whitelist

	cfg.SqlFts.TolerancePercent = intOr(raw.SqlFts.TolerancePercent, defaults.SqlFtsTolerancePercent)
	cfg.SqlFts.Whitelist = raw.SqlFts.Whitelist

	cfg.Structure.InstrumentedAllowList = raw.Structure.InstrumentedAllowList
	cfg.Structure.InstrumentedTolerancePercent = intOr(raw.Structure.InstrumentedTolerancePercent, defaults.StructureInstrumentedTolerancePercent)

	cfg.Stack.Whitelist.Files = raw.Stack.Whitelist.Files

	cfg.Fixtures.TolerancePercent = intOr(raw.Fixtures.TolerancePercent, defaults.FixturesTolerancePercent)
	cfg.Fixtures.MinBytes = intOr(raw.Fixtures.MinBytes, defaults.FixturesMinBytes)
	cfg.Fixtures.MaxBytes = intOr(raw.Fixtures.MaxBytes, defaults.FixturesMaxBytes)
	cfg.Fixtures.Whitelist = raw.Fixtures.Whitelist

	cfg.Tests.TolerancePercent = intOr(raw.Tests.TolerancePercent, defaults.TestsTolerancePercent)
	cfg.Tests.Whitelist = raw.Tests.Whitelist

	cfg.Coverage.Branches.MinPercent = intOr(raw.Coverage.Branches.MinPercent, defaults.CoverageBranchesMinPercent)
	cfg.Coverage.Whitelist = raw.Coverage.Whitelist

	cfg.UploadEnabled = &uploadEnabled
	cfg.UploadURL = raw.UploadURL
	return cfg
}

// validateContent applies the same size/control-character defense-in-depth
// checks the workflow YAML loader applies, since testgate.yml ships inside
// a repo checkout this process does not otherwise trust.
func validateContent(data []byte) error {
	if len(data) > maxConfigSizeBytes {
		return fmt.Errorf("config file exceeds maximum size of %d bytes", maxConfigSizeBytes)
	}
	if bytes.Contains(data, []byte{0x00}) {
		return fmt.Errorf("config file contains null bytes (binary content not allowed)")
	}
	controlCount := 0
	for _, b := range data {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			controlCount++
		}
	}
	if controlCount > 10 {
		return fmt.Errorf("config file contains excessive control characters (%d found)", controlCount)
	}
	return nil
}

// Load reads and parses path, returning a Config with every absent key
// resolved to its documented default. A missing or malformed file is
// returned as a plain error — config loading happens before any audit
// runs, outside the processing-error/FAIL distinction that governs audits.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path supplied by the operator, not derived from audited content
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := validateContent(data); err != nil {
		return Config{}, err
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parsing config yaml: %w", err)
	}

	return resolve(raw), nil
}

// Default returns the all-defaults configuration, used when no config file
// is supplied.
func Default() Config {
	return resolve(rawConfig{})
}
