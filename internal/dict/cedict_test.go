// ABOUTME: Tests for CC-CEDICT parsing
// ABOUTME: Covers comments, malformed lines, first-entry-wins, and gloss truncation

package dict

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadFromString(t *testing.T, content string) *Dict {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cedict_ts.u8")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing dict file: %v", err)
	}
	d, err := Load(path, testLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return d
}

func TestLoad_BasicEntries(t *testing.T) {
	d := loadFromString(t, strings.Join([]string{
		"# CC-CEDICT",
		"# a comment line",
		"",
		"你 你 [ni3] /you (informal)/thou/",
		"好 好 [hao3] /good/well/proper/",
	}, "\n"))

	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
	if got := d.Meaning("你"); got != "you (informal)" {
		t.Errorf("Meaning(你) = %q", got)
	}
	if got := d.Meaning("好"); got != "good" {
		t.Errorf("Meaning(好) = %q", got)
	}
	if got := d.Meaning("無"); got != "" {
		t.Errorf("Meaning(無) = %q, want empty", got)
	}
}

func TestLoad_FirstEntryWins(t *testing.T) {
	d := loadFromString(t, strings.Join([]string{
		"行 行 [xing2] /to walk/to go/",
		"行 行 [hang2] /row/line/",
	}, "\n"))

	if got := d.Meaning("行"); got != "to walk" {
		t.Errorf("Meaning(行) = %q, want first entry's gloss", got)
	}
}

func TestLoad_SkipsMalformedLines(t *testing.T) {
	d := loadFromString(t, strings.Join([]string{
		"onlyonefield",
		"两 段",
		"你 你 [ni3] /you/",
		"夫 夫 [fu2] /[fu2]/",
	}, "\n"))

	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestLoad_SkipsPronunciationOnlySegments(t *testing.T) {
	d := loadFromString(t, "你好 你好 [ni3 hao3] /[ni3 hao3]/hello/hi/\n")

	if got := d.Meaning("你好"); got != "hello" {
		t.Errorf("Meaning(你好) = %q, want first real gloss", got)
	}
}

func TestLoad_TruncatesLongGlosses(t *testing.T) {
	long := strings.Repeat("x", 50)
	d := loadFromString(t, "字 字 [zi4] /"+long+"/\n")

	got := d.Meaning("字")
	if len([]rune(got)) != 40 {
		t.Errorf("truncated gloss length = %d runes, want 40", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated gloss %q does not end with ellipsis", got)
	}
}

func TestLoad_MissingFileIsNotFatal(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "nope.u8"), testLogger())
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
	if got := d.Meaning("你"); got != "" {
		t.Errorf("Meaning on empty dict = %q", got)
	}
}
