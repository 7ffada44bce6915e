// Package sqlfts implements the SQL/FTS hygiene audit: it bans raw-query
// escape hatches and complex hand-written SQL, enforces a stable sort
// order on the rail-entry query family, and locks full-text search to the
// FTS4 tokenizer.
package sqlfts

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/detentsh/testgate/internal/audit"
	"github.com/detentsh/testgate/internal/srcscan"
	"github.com/detentsh/testgate/internal/whitelist"
)

// Name is the audit identifier reported in AuditResult.Name.
const Name = "SqlFtsAudit"

var (
	queryBody      = regexp.MustCompile(`(?s)@Query\s*\(\s*("""(.*?)"""|"((?:[^"\\]|\\.)*)")\s*\)`)
	rawQueryStart  = regexp.MustCompile(`(?m)^\s*@RawQuery\b`)
	complexKeyword = regexp.MustCompile(`(?i)\b(JOIN|UNION|WITH|CREATE|ALTER|INSERT|UPDATE|DELETE)\b`)
	railsFrom      = regexp.MustCompile(`(?i)from\s+\S*railentry\S*`)
	orderByPos     = regexp.MustCompile(`(?i)order\s+by\s+position\b`)
	orderByPop     = regexp.MustCompile(`(?i)order\s+by\s+popularity\b`)
)

// Config carries the already-resolved sqlFts.* configuration tunables.
type Config struct {
	Module            string
	TolerancePercent  int
	WhitelistPatterns []string
}

type queryExtract struct {
	sql  string
	line int
}

// New returns an Audit bound to cfg.
func New(cfg Config) audit.Audit {
	return func(sink audit.Sink) error {
		wl := whitelist.Compile(cfg.WhitelistPatterns)

		var findings []audit.Finding
		sawFts4, sawAnyFts := false, false

		files := srcscan.ListSourceFilesUnder(cfg.Module)
		for _, rel := range files {
			data, err := os.ReadFile(joinPath(cfg.Module, rel))
			if err != nil {
				continue
			}
			content := string(data)
			whitelisted := wl.MatchesPath(rel)

			if strings.Contains(content, "@Fts4") {
				sawFts4, sawAnyFts = true, true
			}
			if strings.Contains(content, "@Fts5") {
				sawAnyFts = true
				findings = append(findings, audit.NewFinding(
					"Fts5Banned", "@Fts5 is not permitted; use @Fts4",
				).WithFile(rel, 0))
			}

			if !whitelisted {
				if loc := rawQueryStart.FindStringIndex(content); loc != nil {
					findings = append(findings, audit.NewFinding(
						"RawQueryUsage", "@RawQuery is not permitted",
					).WithFile(rel, lineOf(content, loc[0])))
				}
				if strings.Contains(content, "SupportSQLiteQuery") {
					findings = append(findings, audit.NewFinding(
						"ForbiddenSqlApi", "SupportSQLiteQuery is not permitted",
					).WithFile(rel, 0))
				}
			}

			for _, q := range extractQueries(content) {
				if !whitelisted {
					if m := complexKeyword.FindString(q.sql); m != "" {
						findings = append(findings, audit.NewFinding(
							"ComplexSqlKeyword", "query uses disallowed keyword "+strings.ToUpper(m),
						).WithFile(rel, q.line))
					}
				}
				if railsFrom.MatchString(q.sql) {
					if orderByPop.MatchString(q.sql) {
						findings = append(findings, audit.NewFinding(
							"RailsGuardViolation", "ORDER BY popularity is forbidden on RailEntry queries",
						).WithFile(rel, q.line))
					}
					if !orderByPos.MatchString(q.sql) {
						findings = append(findings, audit.NewFinding(
							"RailsGuardViolation", "RailEntry query must ORDER BY position",
						).WithFile(rel, q.line))
					}
				}
			}
		}

		if sawAnyFts && !sawFts4 {
			findings = append(findings, audit.NewFinding(
				"FtsMissingFts4", "full-text search is used but no @Fts4 entity declares it",
			))
		}

		scanned := len(files)
		if scanned < 1 {
			scanned = 1
		}
		status := audit.Pass
		if len(findings)*100 > cfg.TolerancePercent*scanned {
			status = audit.Fail
		}

		sink.Enqueue(audit.New(cfg.Module, Name, findings, cfg.TolerancePercent, status))
		return nil
	}
}

// extractQueries finds every @Query(...) body in content, unescaping
// neither single- nor triple-quoted form (the keyword/FROM-clause checks
// are regex scans, not SQL parsing, so raw text is sufficient).
func extractQueries(content string) []queryExtract {
	var out []queryExtract
	for _, m := range queryBody.FindAllStringSubmatchIndex(content, -1) {
		full := content[m[0]:m[1]]
		var sql string
		switch {
		case m[4] >= 0:
			sql = content[m[4]:m[5]]
		case m[6] >= 0:
			sql = content[m[6]:m[7]]
		default:
			sql = full
		}
		out = append(out, queryExtract{sql: sql, line: lineOf(content, m[0])})
	}
	return out
}

// lineOf returns the 1-based line number of byte offset in content.
func lineOf(content string, offset int) int {
	return 1 + strings.Count(content[:offset], "\n")
}

func joinPath(module, rel string) string {
	return filepath.Join(module, filepath.FromSlash(rel))
}
