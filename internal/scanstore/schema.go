package scanstore

import "database/sql"

// CurrentSchemaVersion gates a rebuild: any stored value other than this
// exact string triggers a full drop-and-recreate on open.
const CurrentSchemaVersion = "2"

const (
	metaKeySchemaVersion = "schema_version"
	metaKeyHeadOid       = "head_oid"
)

var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS paths (
		path            TEXT PRIMARY KEY,
		cumulative_size INTEGER NOT NULL,
		current_size    INTEGER NOT NULL,
		blob_count      INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS seen_blobs (
		oid BLOB PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS scanned_commits (
		oid BLOB PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS blobs (
		oid          BLOB PRIMARY KEY,
		size         INTEGER NOT NULL,
		path         TEXT NOT NULL,
		first_author TEXT NOT NULL,
		first_date   INTEGER NOT NULL
	)`,
}

// domainTables lists every table ensureSchema may need to drop on a
// version mismatch, including names used by schema versions that predate
// this constant, so a stale file never leaves orphaned tables behind.
var domainTables = []string{
	"paths",
	"seen_blobs",
	"scanned_commits",
	"blobs",
	// legacy names from schema version 1
	"path_lookup",
	"blob_meta",
}

// ensureSchema creates the metadata table if absent, compares the stored
// schema_version against CurrentSchemaVersion, and on mismatch drops every
// domain table and clears metadata before recreating everything fresh. It
// reports whether a rebuild occurred so the caller can log it.
func ensureSchema(db *sql.DB) (rebuilt bool, err error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return false, err
	}

	var stored string
	err = db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, metaKeySchemaVersion).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		rebuilt = true
	case err != nil:
		return false, err
	case stored != CurrentSchemaVersion:
		rebuilt = true
	}

	if !rebuilt {
		return false, createRemainingTables(db)
	}

	for _, table := range domainTables {
		if _, err := db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
			return false, err
		}
	}
	if _, err := db.Exec(`DELETE FROM metadata`); err != nil {
		return false, err
	}
	if err := createRemainingTables(db); err != nil {
		return false, err
	}
	if _, err := db.Exec(`INSERT INTO metadata (key, value) VALUES (?, ?)`, metaKeySchemaVersion, CurrentSchemaVersion); err != nil {
		return false, err
	}

	return true, nil
}

func createRemainingTables(db *sql.DB) error {
	for _, stmt := range createTableStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
