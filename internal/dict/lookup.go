// ABOUTME: Pinyin and meaning lookup for characters and short words
// ABOUTME: Tone-marked romanization via go-pinyin plus dictionary glosses

package dict

import (
	"strings"

	"github.com/mozillazg/go-pinyin"
)

// Entry is the lookup result for one character or word.
type Entry struct {
	Pinyin  string `json:"pinyin"`
	Meaning string `json:"meaning"`
}

// Lookup resolves pinyin and meaning for each input string. Unknown or
// non-Chinese input yields empty strings, never errors.
func (d *Dict) Lookup(chars []string) map[string]Entry {
	result := make(map[string]Entry, len(chars))
	for _, ch := range chars {
		result[ch] = Entry{
			Pinyin:  tonePinyin(ch),
			Meaning: d.meaningWithFallback(ch),
		}
	}
	return result
}

// tonePinyin renders tone-marked pinyin, one syllable per character,
// joined with single spaces. Non-Chinese runes produce no syllables.
func tonePinyin(s string) string {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone

	syllables := pinyin.Pinyin(s, args)
	if len(syllables) == 0 {
		return ""
	}

	parts := make([]string, 0, len(syllables))
	for _, s := range syllables {
		if len(s) > 0 {
			parts = append(parts, s[0])
		}
	}
	return strings.Join(parts, " ")
}

// meaningWithFallback returns the exact gloss, falling back to the first
// character's gloss for multi-character words with no entry of their own.
func (d *Dict) meaningWithFallback(s string) string {
	if meaning := d.Meaning(s); meaning != "" {
		return meaning
	}
	runes := []rune(s)
	if len(runes) > 1 {
		return d.Meaning(string(runes[0]))
	}
	return ""
}
