package tokensmith

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// ScanStats tracks capture file discovery statistics
type ScanStats struct {
	FilesDiscovered int // Total files found by glob patterns
	FilesScanned    int // Files kept after filtering
	FilesSkipped    int // Files skipped as run outputs or ignored
}

// ignoreFiles are consulted in order; a match in any of them skips the file
var ignoreFiles = []string{".gitignore", ".tokensmithignore"}

var (
	ignoreCache []*ignore.GitIgnore
	ignoreOnce  sync.Once
)

// loadIgnores loads the ignore files of the working directory once.
// Missing files are fine.
func loadIgnores() []*ignore.GitIgnore {
	ignoreOnce.Do(func() {
		for _, name := range ignoreFiles {
			gi, err := ignore.CompileIgnoreFile(name)
			if err != nil {
				continue
			}
			ignoreCache = append(ignoreCache, gi)
		}
	})
	return ignoreCache
}

// isRunOutput reports files written by a previous run; they are JSON but
// not page captures
func isRunOutput(path string) bool {
	switch filepath.Base(path) {
	case SamplesFile, ResultsFile, ".tokensmith.yaml":
		return true
	}
	return false
}

// shouldSkipFile determines if a file should be excluded from replay.
//
// Two-layer filtering:
// 1. Pattern check (fast): skip run outputs
// 2. Ignore check: skip ignored files (only for relative paths)
func shouldSkipFile(path string, ignores []*ignore.GitIgnore) bool {
	if isRunOutput(path) {
		return true
	}

	// Absolute paths (like /tmp/...) are outside the project and never ignored
	if !filepath.IsAbs(path) {
		for _, gi := range ignores {
			if gi != nil && gi.MatchesPath(path) {
				return true
			}
		}
	}

	return false
}

// DiscoverCaptures expands doublestar patterns into capture files, sorted
// and deduplicated, honoring .gitignore and .tokensmithignore
func DiscoverCaptures(patterns []string) ([]string, ScanStats, error) {
	return expandGlobPatternsWithStats(patterns, loadIgnores())
}

func expandGlobPatternsWithStats(patterns []string, ignores []*ignore.GitIgnore) ([]string, ScanStats, error) {
	var allFiles []string
	seen := make(map[string]bool)
	stats := ScanStats{}

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, stats, err
		}

		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			stats.FilesDiscovered++

			if shouldSkipFile(match, ignores) {
				stats.FilesSkipped++
				continue
			}
			allFiles = append(allFiles, match)
			stats.FilesScanned++
		}
	}

	sort.Strings(allFiles)
	return allFiles, stats, nil
}
