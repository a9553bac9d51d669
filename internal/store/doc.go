// Package store provides per-user document persistence for dushu using SQLite.
//
// Each user owns at most one row per document key; writes are whole-value
// upserts and reads fill type-correct defaults for absent rows. The document
// key set is closed: unrecognized keys are dropped on write and never
// returned on read.
//
// The schema carries an explicit version marker. Databases created by the
// legacy single-user layout (no user column) are migrated on open, with all
// pre-existing rows preserved under the sentinel user "main". The migration
// is idempotent and tolerates concurrent processes racing at startup.
package store
