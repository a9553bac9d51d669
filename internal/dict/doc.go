// Package dict loads the CC-CEDICT dictionary and resolves pinyin and
// meanings for Chinese characters.
//
// The dictionary is parsed once at startup into an immutable map, safe for
// unsynchronized concurrent reads. Lookups are pure: unknown characters
// yield empty strings, never errors.
package dict
