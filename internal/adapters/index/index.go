// Package index persists the tile cache index in SQLite.
package index

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver
	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
)

const schemaVersion = 1

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS tiles (
	fingerprint TEXT NOT NULL,
	level INTEGER NOT NULL,
	tile_row INTEGER NOT NULL,
	tile_col INTEGER NOT NULL,
	byte_size INTEGER NOT NULL,
	last_access INTEGER NOT NULL,
	PRIMARY KEY (fingerprint, level, tile_row, tile_col)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_tiles_last_access ON tiles(last_access);`

const upsertSQL = `
INSERT INTO tiles (fingerprint, level, tile_row, tile_col, byte_size, last_access)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (fingerprint, level, tile_row, tile_col) DO UPDATE SET
	byte_size = excluded.byte_size,
	last_access = max(last_access, excluded.last_access)`

var _ ports.CacheIndex = (*Index)(nil)

// Index implements ports.CacheIndex on a SQLite database in WAL mode.
type Index struct {
	db    *sql.DB
	path  string
	fresh bool
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create index directory"), "path", path)
	}

	dsn := "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, failed(err, "open index", path)
	}
	// A single connection serializes writers; WAL keeps reads cheap.
	db.SetMaxOpenConns(1)

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		_ = db.Close()
		return nil, failed(err, "read index version", path)
	}

	idx := &Index{db: db, path: path}
	if version != schemaVersion {
		if _, err := db.Exec("DROP TABLE IF EXISTS tiles"); err != nil {
			_ = db.Close()
			return nil, failed(err, "reset index", path)
		}
		idx.fresh = true
	}
	if _, err := db.Exec(createSchemaSQL); err != nil {
		_ = db.Close()
		return nil, failed(err, "create index schema", path)
	}
	if idx.fresh {
		if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
			_ = db.Close()
			return nil, failed(err, "write index version", path)
		}
	}
	return idx, nil
}

// Fresh reports whether the database was created (or reset) by Open, in which
// case its contents must be rebuilt from the tile tree.
func (i *Index) Fresh() bool {
	return i.fresh
}

// Load returns every entry in the index.
func (i *Index) Load() ([]domain.CacheEntry, error) {
	rows, err := i.db.Query("SELECT fingerprint, level, tile_row, tile_col, byte_size, last_access FROM tiles")
	if err != nil {
		return nil, failed(err, "query index", i.path)
	}
	defer rows.Close() //nolint:errcheck // Best effort close in defer

	var entries []domain.CacheEntry
	for rows.Next() {
		var (
			e      domain.CacheEntry
			fp     string
			access int64
		)
		if err := rows.Scan(&fp, &e.Key.Level, &e.Key.Row, &e.Key.Col, &e.ByteSize, &access); err != nil {
			return nil, failed(err, "scan index row", i.path)
		}
		e.Key.Fingerprint = domain.Fingerprint(fp)
		e.LastAccess = time.Unix(0, access)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, failed(err, "iterate index", i.path)
	}
	return entries, nil
}

// Upsert inserts entries or updates their size and access time in one transaction.
// Access times never move backwards.
func (i *Index) Upsert(entries ...domain.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return i.inTx("upsert index entries", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(upsertSQL)
		if err != nil {
			return err
		}
		defer stmt.Close() //nolint:errcheck // Best effort close in defer

		for _, e := range entries {
			k := e.Key
			if _, err := stmt.Exec(string(k.Fingerprint), k.Level, k.Row, k.Col, e.ByteSize, e.LastAccess.UnixNano()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the entries of keys in one transaction.
func (i *Index) Delete(keys ...domain.TileKey) error {
	if len(keys) == 0 {
		return nil
	}
	return i.inTx("delete index entries", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("DELETE FROM tiles WHERE fingerprint = ? AND level = ? AND tile_row = ? AND tile_col = ?")
		if err != nil {
			return err
		}
		defer stmt.Close() //nolint:errcheck // Best effort close in defer

		for _, k := range keys {
			if _, err := stmt.Exec(string(k.Fingerprint), k.Level, k.Row, k.Col); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear removes every entry.
func (i *Index) Clear() error {
	if _, err := i.db.Exec("DELETE FROM tiles"); err != nil {
		return failed(err, "clear index", i.path)
	}
	return nil
}

// Close closes the database.
func (i *Index) Close() error {
	if err := i.db.Close(); err != nil {
		return failed(err, "close index", i.path)
	}
	return nil
}

func (i *Index) inTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := i.db.Begin()
	if err != nil {
		return failed(err, op, i.path)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return failed(err, op, i.path)
	}
	if err := tx.Commit(); err != nil {
		return failed(err, op, i.path)
	}
	return nil
}

func failed(err error, op, path string) error {
	return zerr.With(zerr.Wrap(errors.Join(domain.ErrIndexFailed, err), op), "path", path)
}
