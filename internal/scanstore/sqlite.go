package scanstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure-Go driver, registers as "sqlite"

	"github.com/rybkr/sizehist/internal/gitobj"
	"github.com/rybkr/sizehist/internal/pathintern"
	"github.com/rybkr/sizehist/internal/scantypes"
	"github.com/rybkr/sizehist/internal/sizetree"
)

// writeBatchSize caps the number of rows per multi-row INSERT issued
// inside ApplyScan's outer transaction.
const writeBatchSize = 5000

// connectionPragmas are applied to the single connection on open. They
// are required, not advisory: WAL lets readers and the writer coexist,
// NORMAL trades durability for throughput (acceptable since a crash mid
// write is recoverable per the scanner's crash-safety invariant), and the
// cache size bound keeps memory use predictable on large histories.
var connectionPragmas = []string{
	`PRAGMA journal_mode = WAL`,
	`PRAGMA synchronous = NORMAL`,
	`PRAGMA temp_store = MEMORY`,
	`PRAGMA cache_size = -64000`,
}

// SqliteStore is the canonical Store implementation, backed by a single
// SQLite file opened with max_connections = 1: the scanner is the only
// writer and there is no benefit to connection pooling.
type SqliteStore struct {
	db      *sql.DB
	Rebuilt bool
}

// OpenSqliteStore opens (creating if absent) the database at path, applies
// the required connection pragmas, and runs the schema migration gate.
func OpenSqliteStore(path string) (*SqliteStore, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range connectionPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	rebuilt, err := ensureSchema(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &SqliteStore{db: db, Rebuilt: rebuilt}, nil
}

// Close releases the underlying database handle.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// GetHeadOid returns the last persisted HEAD hex and true, or ("", false,
// nil) if metadata has no head_oid row yet.
func (s *SqliteStore) GetHeadOid() (string, bool, error) {
	var hex string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, metaKeyHeadOid).Scan(&hex)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get head oid: %w", err)
	default:
		return hex, true, nil
	}
}

// SetHeadOid persists the HEAD cursor.
func (s *SqliteStore) SetHeadOid(hex string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaKeyHeadOid, hex,
	)
	if err != nil {
		return fmt.Errorf("set head oid: %w", err)
	}
	return nil
}

// LoadScannedCommits returns every commit oid previously persisted.
func (s *SqliteStore) LoadScannedCommits() (map[gitobj.Hash]struct{}, error) {
	return s.loadHashSet(`SELECT oid FROM scanned_commits`)
}

// LoadSeenBlobs returns every blob oid previously persisted.
func (s *SqliteStore) LoadSeenBlobs() (map[gitobj.Hash]struct{}, error) {
	return s.loadHashSet(`SELECT oid FROM seen_blobs`)
}

func (s *SqliteStore) loadHashSet(query string) (map[gitobj.Hash]struct{}, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("load hash set: %w", err)
	}
	defer rows.Close()

	set := make(map[gitobj.Hash]struct{})
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan oid: %w", err)
		}
		hash, err := hashFromBlob(raw)
		if err != nil {
			return nil, err
		}
		set[hash] = struct{}{}
	}
	return set, rows.Err()
}

// ApplyScan inserts delta's blob rows into paths (additive upsert), blob
// metadata (ignore-on-conflict), and scanned-commit markers
// (ignore-on-conflict), all inside one transaction chunked into batches of
// writeBatchSize rows so a single statement never grows unbounded.
func (s *SqliteStore) ApplyScan(delta scantypes.ScanDelta, commits []gitobj.Hash, interner *pathintern.Interner) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin apply_scan transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if err := upsertPaths(tx, delta.Blobs, interner); err != nil {
		return err
	}
	if err := insertBlobMeta(tx, delta.Metadata, interner); err != nil {
		return err
	}
	if err := insertSeenBlobs(tx, delta.Metadata); err != nil {
		return err
	}
	if err := insertScannedCommits(tx, commits); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply_scan transaction: %w", err)
	}
	return nil
}

// upsertPaths applies the additive upsert in chunks of writeBatchSize rows
// per multi-row INSERT, so a single statement never grows unbounded on a
// large scan delta. Row order within a batch is immaterial: the upsert is
// additive.
func upsertPaths(tx *sql.Tx, rows []scantypes.BlobRow, interner *pathintern.Interner) error {
	for start := 0; start < len(rows); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := upsertPathsBatch(tx, rows[start:end], interner); err != nil {
			return err
		}
	}
	return nil
}

func upsertPathsBatch(tx *sql.Tx, batch []scantypes.BlobRow, interner *pathintern.Interner) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO paths (path, cumulative_size, current_size, blob_count) VALUES `)
	args := make([]any, 0, len(batch)*3)
	for i, row := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, 1)")
		args = append(args, interner.GetStr(row.PathId), row.CumulativeSize, row.CurrentSize)
	}
	sb.WriteString(` ON CONFLICT(path) DO UPDATE SET
		cumulative_size = cumulative_size + excluded.cumulative_size,
		current_size    = current_size    + excluded.current_size,
		blob_count      = blob_count      + excluded.blob_count`)

	if _, err := tx.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert paths batch of %d: %w", len(batch), err)
	}
	return nil
}

func insertBlobMeta(tx *sql.Tx, rows []scantypes.BlobMetaRow, interner *pathintern.Interner) error {
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO blobs (oid, size, path, first_author, first_date) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare blobs insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		oid := row.Oid.Bytes()
		path := interner.GetStr(row.PathId)
		if _, err := stmt.Exec(oid[:], row.Size, path, row.Author, row.Timestamp.Unix()); err != nil {
			return fmt.Errorf("insert blob meta %s: %w", row.Oid.Short(), err)
		}
	}
	return nil
}

// insertSeenBlobs records one row per distinct blob oid newly introduced
// by this scan. BlobMetaRow is emitted exactly once per oid (§4.4's
// is_new_blob table), so it is the authoritative source for this table.
func insertSeenBlobs(tx *sql.Tx, meta []scantypes.BlobMetaRow) error {
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO seen_blobs (oid) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare seen_blobs insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range meta {
		raw := row.Oid.Bytes()
		if _, err := stmt.Exec(raw[:]); err != nil {
			return fmt.Errorf("insert seen blob %s: %w", row.Oid.Short(), err)
		}
	}
	return nil
}

func insertScannedCommits(tx *sql.Tx, commits []gitobj.Hash) error {
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO scanned_commits (oid) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("prepare scanned_commits insert: %w", err)
	}
	defer stmt.Close()

	for _, oid := range commits {
		raw := oid.Bytes()
		if _, err := stmt.Exec(raw[:]); err != nil {
			return fmt.Errorf("insert scanned commit %s: %w", oid.Short(), err)
		}
	}
	return nil
}

// LoadTree reconstructs the directory tree from the paths table.
func (s *SqliteStore) LoadTree() (*sizetree.TreeNode, error) {
	rows, err := s.db.Query(`SELECT path, cumulative_size, current_size, blob_count FROM paths`)
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	defer rows.Close()

	root := sizetree.NewRoot()
	for rows.Next() {
		var row sizetree.StoredRow
		if err := rows.Scan(&row.Path, &row.CumulativeSize, &row.CurrentSize, &row.BlobCount); err != nil {
			return nil, fmt.Errorf("scan path row: %w", err)
		}
		root.Absorb(row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	root.ComputeTotals()
	return root, nil
}

// TopBlobs returns the n largest blobs by size, descending.
func (s *SqliteStore) TopBlobs(n int) ([]BlobRecord, error) {
	rows, err := s.db.Query(
		`SELECT oid, size, path, first_author, first_date FROM blobs ORDER BY size DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("top blobs: %w", err)
	}
	defer rows.Close()

	var out []BlobRecord
	for rows.Next() {
		var raw []byte
		var rec BlobRecord
		if err := rows.Scan(&raw, &rec.Size, &rec.Path, &rec.FirstAuthor, &rec.FirstDate); err != nil {
			return nil, fmt.Errorf("scan blob record: %w", err)
		}
		hash, err := hashFromBlob(raw)
		if err != nil {
			return nil, err
		}
		rec.Oid = hash
		out = append(out, rec)
	}
	return out, rows.Err()
}

func hashFromBlob(raw []byte) (gitobj.Hash, error) {
	if len(raw) != 20 {
		return "", fmt.Errorf("oid blob has length %d, want 20", len(raw))
	}
	var arr [20]byte
	copy(arr[:], raw)
	return gitobj.NewHashFromBytes(arr)
}
