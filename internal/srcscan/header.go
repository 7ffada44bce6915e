package srcscan

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// maxHeaderLines bounds how far ReadHeader scans into a file. Package and
// import statements and the primary type declaration all live near the
// top of a well-formed Kotlin/Java file; this keeps the reader fast and
// immune to pathological file sizes.
const maxHeaderLines = 400

var (
	packagePattern = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;?\s*$`)
	importPattern  = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\.\*)?)\s*;?\s*$`)
	// declPattern tolerates Java modifiers (public, final, abstract, ...)
	// and Kotlin visibility/other modifiers (internal, open, sealed,
	// data, ...) preceding the class/interface/object/enum keyword.
	declPattern = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|final|abstract|open|sealed|data|inner|static|annotation|inline|value|fun)\s+)*(class|interface|object|enum)\s+(\w+)`)
)

// Declaration is one top-level type declaration found in a header.
type Declaration struct {
	Kind string // "class", "interface", "object", or "enum"
	Name string
	Line int // 1-indexed
}

// Header is the result of a bounded header scan.
type Header struct {
	Package      string // "" for a default (no) package
	Imports      []string
	Declarations []Declaration
}

// ReadHeader performs a fast, line-based, bounded read of file, extracting
// the package line, all imports (including wildcard "X.Y.*" imports), and
// top-level class/interface/object/enum declarations with their 1-based
// line numbers. It does not attempt full parsing: nested or local
// declarations are not reported.
func ReadHeader(file string) (*Header, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := &Header{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	depth := 0 // brace nesting; a declaration is top-level only at depth 0
	for scanner.Scan() && lineNo < maxHeaderLines {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		if h.Package == "" {
			if m := packagePattern.FindStringSubmatch(line); m != nil {
				h.Package = m[1]
				continue
			}
		}
		if m := importPattern.FindStringSubmatch(line); m != nil {
			h.Imports = append(h.Imports, m[1])
			continue
		}
		if depth == 0 {
			if m := declPattern.FindStringSubmatch(line); m != nil {
				h.Declarations = append(h.Declarations, Declaration{
					Kind: m[1],
					Name: m[2],
					Line: lineNo,
				})
			}
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return h, nil
}
