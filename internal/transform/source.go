package transform

import (
	"os"
	"strings"
	"sync"

	"github.com/anschnapp/mutflow/internal/logger"
)

// SourceReader reads a source file's lines, used only to locate suppression
// pragmas. Implementations should not assume the file still exists by the
// time a later call arrives; a cache in front of this interface is the
// Transformer's responsibility, not the reader's.
type SourceReader interface {
	ReadLines(path string) ([]string, error)
}

// OSSourceReader reads source files straight off disk.
type OSSourceReader struct{}

// ReadLines implements SourceReader.
func (OSSourceReader) ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\n"), nil
}

const (
	pragmaIgnore       = "mutflow:ignore"
	pragmaFalsePositiv = "mutflow:falsePositive"
)

// lineCache memoizes per-path suppressed-line sets for the duration of one
// Transformer's lifetime, matching spec.md §4.3's "read once, cache per
// path" requirement.
type lineCache struct {
	reader SourceReader
	mu     sync.Mutex
	byPath map[string]map[int]bool
}

func newLineCache(reader SourceReader) *lineCache {
	return &lineCache{reader: reader, byPath: make(map[string]map[int]bool)}
}

// suppressedLines returns the set of 1-based line numbers suppressed by a
// pragma in path, computing and caching it on first use. On a read failure
// it logs once and returns an empty set, so callers proceed without pragma
// suppression rather than failing the whole transform.
func (c *lineCache) suppressedLines(path string) map[int]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if set, ok := c.byPath[path]; ok {
		return set
	}

	set := make(map[int]bool)
	lines, err := c.reader.ReadLines(path)
	if err != nil {
		logger.Warn("transform: could not read %s for pragma suppression: %v", path, err)
		c.byPath[path] = set
		return set
	}

	for i, text := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(text)
		hasPragma := strings.Contains(text, pragmaIgnore) || strings.Contains(text, pragmaFalsePositiv)
		if !hasPragma {
			continue
		}
		if strings.HasPrefix(trimmed, "//") {
			set[lineNo+1] = true
		} else {
			set[lineNo] = true
		}
	}

	c.byPath[path] = set
	return set
}
