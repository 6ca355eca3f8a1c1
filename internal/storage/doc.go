// Package storage persists events with gorm.
//
// SQLite (pure Go, via glebarez/sqlite) is the default backend and lives at
// $TMPDIR/sports.db unless a DSN is configured; PostgreSQL is available for
// shared deployments. Events are keyed by URL: inserts ignore duplicates and
// link updates match on the canonical URL. Purge deletes fixtures that
// started more than the retention window ago.
package storage
