package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/vector"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpora (
		key TEXT PRIMARY KEY,
		documents TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		vectors BLOB NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_corpora_created_at ON corpora(created_at);

	CREATE TABLE IF NOT EXISTS corpus_chunks (
		corpus_key TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		page INTEGER NOT NULL,
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		approximate INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (corpus_key, ordinal),
		FOREIGN KEY (corpus_key) REFERENCES corpora(key) ON DELETE CASCADE
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// databases created before fingerprints were recorded
	return addColumn(db, "corpora", "fingerprint", "TEXT NOT NULL DEFAULT ''")
}

func addColumn(db *sql.DB, table, column, decl string) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// SaveCorpus writes the corpus row, its vector snapshot and one row per chunk in a transaction.
func (s *SQLiteStorage) SaveCorpus(ctx context.Context, corpus *Corpus) error {
	documentsJSON, err := json.Marshal(corpus.Documents)
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	var blob bytes.Buffer
	if _, err := vector.WriteEntries(&blob, corpus.Entries); err != nil {
		return fmt.Errorf("failed to encode vectors: %w", err)
	}
	dimensions := 0
	if len(corpus.Entries) > 0 {
		dimensions = len(corpus.Entries[0].Vector)
	}
	if corpus.CreatedAt.IsZero() {
		corpus.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_chunks WHERE corpus_key = ?`, corpus.Key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO corpora (key, documents, dimensions, chunk_count, vectors, fingerprint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		corpus.Key, string(documentsJSON), dimensions, len(corpus.Entries), blob.Bytes(), corpus.Fingerprint, corpus.CreatedAt,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO corpus_chunks (corpus_key, ordinal, id, content, source, page, char_start, char_end, approximate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range corpus.Entries {
		c := e.Chunk
		if _, err := stmt.ExecContext(ctx, corpus.Key, i, c.ID, c.Content, c.Metadata.Source, c.Metadata.Page,
			c.Metadata.CharStart, c.Metadata.CharEnd, c.Metadata.Approximate); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadCorpus reads a corpus and pairs every chunk row with its stored vector.
func (s *SQLiteStorage) LoadCorpus(ctx context.Context, key string) (*Corpus, error) {
	corpus := &Corpus{Key: key}
	var documentsJSON string
	var blob []byte
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT documents, chunk_count, vectors, fingerprint, created_at FROM corpora WHERE key = ?`, key,
	).Scan(&documentsJSON, &count, &blob, &corpus.Fingerprint, &corpus.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrCorpusNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(documentsJSON), &corpus.Documents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
	}

	ids, vectors, err := vector.ReadEntries(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vectors: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, source, page, char_start, char_end, approximate
		 FROM corpus_chunks WHERE corpus_key = ? ORDER BY ordinal`, key,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	corpus.Entries = make([]vector.Entry, 0, count)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Metadata.Source, &c.Metadata.Page,
			&c.Metadata.CharStart, &c.Metadata.CharEnd, &c.Metadata.Approximate); err != nil {
			return nil, err
		}
		i := len(corpus.Entries)
		if i >= len(ids) || ids[i] != c.ID {
			return nil, fmt.Errorf("corpus %s: stored vectors do not match chunk %d", key, i)
		}
		corpus.Entries = append(corpus.Entries, vector.Entry{Chunk: c, Vector: vectors[i]})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(corpus.Entries) != len(ids) {
		return nil, fmt.Errorf("corpus %s: %d chunks but %d vectors", key, len(corpus.Entries), len(ids))
	}
	return corpus, nil
}

// DeleteCorpus removes a corpus and its chunks. Unknown keys are not an error.
func (s *SQLiteStorage) DeleteCorpus(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_chunks WHERE corpus_key = ?`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM corpora WHERE key = ?`, key); err != nil {
		return err
	}
	return tx.Commit()
}

// ListCorpora returns stored corpora, newest first.
func (s *SQLiteStorage) ListCorpora(ctx context.Context, offset, limit int) ([]*models.CorpusInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, documents, dimensions, chunk_count
		 FROM corpora ORDER BY created_at DESC, key LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CorpusInfo
	for rows.Next() {
		var info models.CorpusInfo
		var documentsJSON string
		if err := rows.Scan(&info.Key, &documentsJSON, &info.Dimensions, &info.Chunks); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(documentsJSON), &info.Documents)
		out = append(out, &info)
	}
	return out, rows.Err()
}

// CountCorpora returns the number of stored corpora.
func (s *SQLiteStorage) CountCorpora(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpora`).Scan(&count)
	return count, err
}

// CountChunks returns the number of stored chunks across corpora.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
