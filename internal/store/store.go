// ABOUTME: Store interface and document key definitions for dushu persistence
// ABOUTME: Defines the per-user JSON document contract and type-correct defaults

package store

import (
	"context"
	"encoding/json"
)

// SentinelUser is the partition key for data written before multi-user
// support existed. Password-mode deployments read and write under it.
const SentinelUser = "main"

// Document keys accepted by the store. The set is closed: writes with
// other keys are dropped silently and reads never return them.
const (
	KeyUnknownChars     = "unknownChars"
	KeyMasteredChars    = "masteredChars"
	KeyMasteredCharData = "masteredCharData"
	KeyArticleHistory   = "articleHistory"
	KeyQuizProgress     = "quizProgress"
)

// DocumentKeys lists every accepted key in a stable order.
var DocumentKeys = []string{
	KeyUnknownChars,
	KeyMasteredChars,
	KeyMasteredCharData,
	KeyArticleHistory,
	KeyQuizProgress,
}

// IsDocumentKey reports whether key belongs to the accepted set.
func IsDocumentKey(key string) bool {
	for _, k := range DocumentKeys {
		if k == key {
			return true
		}
	}
	return false
}

// DefaultValue returns the JSON default for a document key: an empty
// array for articleHistory, an empty object for everything else.
func DefaultValue(key string) json.RawMessage {
	if key == KeyArticleHistory {
		return json.RawMessage("[]")
	}
	return json.RawMessage("{}")
}

// Store defines per-user document persistence.
type Store interface {
	// Get returns every document key for the user, filling type-correct
	// defaults for keys with no stored row. It never fails just because
	// the user has no rows yet.
	Get(ctx context.Context, user string) (map[string]json.RawMessage, error)

	// Put replaces the stored value wholesale for each accepted key in
	// docs. Keys outside the document set are skipped without error.
	// All writes of one call happen in a single transaction.
	Put(ctx context.Context, user string, docs map[string]json.RawMessage) error

	Close() error
}
