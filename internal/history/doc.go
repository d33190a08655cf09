// Package history keeps a SQLite ledger of batch runs and the rows each run
// appended to its report.
//
// The CSV report stays the artifact of record; the ledger lets operators list
// past runs and filter their mismatches without re-reading report files. The
// schema is embedded and versioned: a version mismatch is reported rather than
// migrated, and the database can simply be deleted.
package history
