package compilation

import (
	"regexp"
	"strconv"
	"strings"
)

// compilerError is one in-progress or completed error record built while
// scanning the captured stderr stream.
type compilerError struct {
	path       string
	line       int
	message    string
	stackTrace []string
}

var (
	kotlinBuildTool = regexp.MustCompile(`^e:\s*(.+?):\s*\((\d+),\s*\d+\):\s*(.*)$`)
	kotlinCLI       = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*error:\s*(.*)$`)
	javac           = regexp.MustCompile(`^(.+?):(\d+):\s*error:\s*(.*)$`)
	kspWithLocation = regexp.MustCompile(`^\[ksp\d*\]\s*(.+?):(\d+):(\d+):\s*(.*)$`)
	kspShort        = regexp.MustCompile(`^e:\s*\[(?:ksp\d*|kapt)\]\s*(.*)$`)

	continuationMessage = regexp.MustCompile(`^\s*(symbol:|location:)`)
)

// isContinuationStacktrace reports whether line is a stacktrace-continuation
// line per the documented prefixes.
func isContinuationStacktrace(line string) bool {
	return strings.HasPrefix(line, "at ") ||
		strings.HasPrefix(line, "\t") ||
		strings.HasPrefix(line, "    ") ||
		strings.HasPrefix(line, "^") ||
		strings.HasPrefix(line, "> Task :")
}

// matchStart tries every start regex against line, returning a new
// compilerError and true on the first match.
func matchStart(line string) (compilerError, bool) {
	if m := kotlinBuildTool.FindStringSubmatch(line); m != nil {
		return compilerError{path: m[1], line: lineNumber(m[2]), message: m[3]}, true
	}
	if m := kotlinCLI.FindStringSubmatch(line); m != nil {
		return compilerError{path: m[1], line: lineNumber(m[2]), message: m[4]}, true
	}
	if m := javac.FindStringSubmatch(line); m != nil {
		return compilerError{path: m[1], line: lineNumber(m[2]), message: m[3]}, true
	}
	if m := kspWithLocation.FindStringSubmatch(line); m != nil {
		return compilerError{path: m[1], line: lineNumber(m[2]), message: m[4]}, true
	}
	if m := kspShort.FindStringSubmatch(line); m != nil {
		return compilerError{message: m[1]}, true
	}
	return compilerError{}, false
}

// lineNumber parses a regex-captured digit run. The capturing groups that
// feed it only ever match \d+, so a parse error here can't occur.
func lineNumber(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// parse runs the continuation state machine over the normalized stderr
// buffer, returning every completed compilerError in encounter order.
func parse(buf string) []compilerError {
	buf = strings.ReplaceAll(buf, "\r\n", "\n")
	buf = strings.ReplaceAll(buf, "\r", "\n")
	lines := strings.Split(buf, "\n")

	var results []compilerError
	var current *compilerError

	flush := func() {
		if current != nil {
			results = append(results, *current)
			current = nil
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if continuationMessage.MatchString(line) && current != nil {
			current.message += "\n" + strings.TrimSpace(line)
			continue
		}
		if isContinuationStacktrace(line) && current != nil {
			current.stackTrace = append(current.stackTrace, line)
			continue
		}
		if ce, ok := matchStart(line); ok {
			flush()
			current = &ce
			continue
		}
		if current != nil {
			current.stackTrace = append(current.stackTrace, line)
		}
	}
	flush()
	return results
}
