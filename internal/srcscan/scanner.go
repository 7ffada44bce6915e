// Package srcscan enumerates Kotlin/Java source files under a module's
// conventional source sets and performs a fast, bounded, line-based read
// of each file's package/import/top-level-declaration header.
package srcscan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// sourceSets are the conventional Gradle/Android source roots scanned for
// .kt/.java files.
var sourceSets = []string{"main", "debug", "release", "test", "androidTest"}

// sourceExtensions are the file extensions counted as source files.
var sourceExtensions = map[string]bool{".kt": true, ".java": true}

// CountSourceFiles returns the number of .kt/.java files under
// moduleDir/src/{main,debug,release,test,androidTest}/**. The result is
// never less than 1, so callers dividing by it never divide by zero.
func CountSourceFiles(moduleDir string) int {
	n := len(ListSourceFiles(moduleDir))
	if n == 0 {
		return 1
	}
	return n
}

// ListSourceFiles returns every .kt/.java file path under moduleDir's
// conventional source sets, relative to moduleDir, forward-slash
// normalized. Order is deterministic (lexical, per source set in the
// order listed in sourceSets).
func ListSourceFiles(moduleDir string) []string {
	var out []string
	for _, set := range sourceSets {
		root := filepath.Join(moduleDir, "src", set)
		_ = fs.WalkDir(os.DirFS(root), ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // missing source set is not an error
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if !sourceExtensions[ext] {
				return nil
			}
			rel := filepath.ToSlash(filepath.Join("src", set, path))
			out = append(out, rel)
			return nil
		})
	}
	return out
}

// ListSourceFilesUnder returns every .kt/.java file found by walking
// moduleDir/src, relative to moduleDir, forward-slash normalized. Unlike
// ListSourceFiles it is not restricted to the conventional source-set
// names, which audits scanning the whole tree (SqlFtsAudit, StructureAudit)
// need.
func ListSourceFilesUnder(moduleDir string) []string {
	var out []string
	root := filepath.Join(moduleDir, "src")
	_ = fs.WalkDir(os.DirFS(root), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // missing src dir is not an error
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !sourceExtensions[ext] {
			return nil
		}
		rel := filepath.ToSlash(filepath.Join("src", path))
		out = append(out, rel)
		return nil
	})
	return out
}
