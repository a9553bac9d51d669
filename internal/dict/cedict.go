// ABOUTME: CC-CEDICT dictionary loader keyed by simplified form
// ABOUTME: Line-oriented parser keeping the first gloss per entry, truncated for display

package dict

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// maxMeaningLen bounds the displayed gloss; longer glosses are cut to 37
// runes plus an ellipsis.
const maxMeaningLen = 40

// Dict maps a simplified character or word to its first dictionary gloss.
type Dict struct {
	entries map[string]string
}

// Empty returns a dictionary with no entries. Lookups still work and
// yield empty meanings.
func Empty() *Dict {
	return &Dict{entries: map[string]string{}}
}

// Load parses a CC-CEDICT file. A missing file is not an error: it logs
// a warning and returns an empty dictionary, since the app degrades to
// pinyin-only lookups. Malformed lines are skipped.
func Load(path string, logger *slog.Logger) (*Dict, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		logger.Warn("cedict file not found, meanings will be empty", "path", path)
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening cedict file: %w", err)
	}
	defer f.Close()

	entries := make(map[string]string, 120_000)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		simplified, meaning, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		// First entry per key wins
		if _, exists := entries[simplified]; !exists {
			entries[simplified] = meaning
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cedict file: %w", err)
	}

	logger.Info("loaded cedict dictionary", "path", path, "entries", len(entries))
	return &Dict{entries: entries}, nil
}

// parseLine extracts the simplified form and first gloss from one CEDICT
// line: `Traditional Simplified [pin1 yin1] /gloss/gloss/`.
func parseLine(line string) (simplified, meaning string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	simplified = parts[1]
	if simplified == "" {
		return "", "", false
	}

	for _, gloss := range strings.Split(parts[2], "/") {
		gloss = strings.TrimSpace(gloss)
		// Pronunciation segments like "[ni3 hao3]" are not glosses
		if gloss == "" || strings.HasPrefix(gloss, "[") {
			continue
		}
		return simplified, truncateMeaning(gloss), true
	}
	return "", "", false
}

// truncateMeaning cuts over-long glosses to a bounded display length.
func truncateMeaning(meaning string) string {
	runes := []rune(meaning)
	if len(runes) <= maxMeaningLen {
		return meaning
	}
	return string(runes[:maxMeaningLen-3]) + "..."
}

// Meaning returns the gloss for an exact entry, or "" when absent.
func (d *Dict) Meaning(s string) string {
	return d.entries[s]
}

// Len reports the number of loaded entries.
func (d *Dict) Len() int {
	return len(d.entries)
}
