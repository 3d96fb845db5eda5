// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
// Each collection owns a pair of tables: a chunk table keyed by chunk ID and
// a vec0 virtual table holding the embeddings, joined on rowid.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/stacks/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// Registry of collections and their dimensionality. The chunk and vec
	// tables are created per collection in EnsureCollection.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// quoteIdent makes a collection name safe to splice into DDL as an
// identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func chunkTable(collection string) string {
	return quoteIdent("chunks_" + collection)
}

func vecTable(collection string) string {
	return quoteIdent("vec_" + collection)
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// collectionDimensions returns the registered dimensionality for a
// collection, or ErrNotFound.
func (d *Driver) collectionDimensions(ctx context.Context, collection string) (uint, error) {
	var dims uint
	err := d.db.QueryRowContext(ctx,
		`SELECT dimensions FROM collections WHERE name = ?`, collection,
	).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", vector.ErrNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("querying collection: %w", err)
	}
	return dims, nil
}

// ListCollections returns the names of all registered collections.
func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning collection name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return names, nil
}

// EnsureCollection registers the collection and creates its table pair if
// they do not already exist.
func (d *Driver) EnsureCollection(ctx context.Context, name string, dimensions uint) error {
	if dimensions == 0 {
		return fmt.Errorf("collection dimensions cannot be 0")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections(name, dimensions) VALUES (?, ?)`,
		name, dimensions,
	); err != nil {
		return fmt.Errorf("registering collection %s: %w", name, err)
	}

	createChunks := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`, chunkTable(name))
	if _, err := tx.ExecContext(ctx, createChunks); err != nil {
		return fmt.Errorf("creating chunk table for %s: %w", name, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d])`,
		vecTable(name), dimensions,
	)
	if _, err := tx.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table for %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Add stores chunks in the named collection.
// If a chunk with the same ID already exists, it is updated.
func (d *Driver) Add(ctx context.Context, collection string, chunks []vector.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dims, err := d.collectionDimensions(ctx, collection)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		if uint(len(c.Embedding)) != dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection %s expects %d",
				vector.ErrDimensionMismatch, c.ID, len(c.Embedding), collection, dims)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	chunksTbl := chunkTable(collection)
	vecTbl := vecTable(collection)

	for _, c := range chunks {
		embBlob := serializeFloat32(c.Embedding)

		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for chunk %s: %w", c.ID, err)
		}

		// Check if the chunk already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT rowid FROM %s WHERE chunk_id = ?`, chunksTbl), c.ID,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			// Chunk exists, update text and metadata
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET text = ?, metadata = ? WHERE rowid = ?`, chunksTbl),
				c.Text, string(metaJSON), existingRowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", c.ID, err)
			}

			// Update embedding in vec0 table via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, vecTbl), existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", c.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, vecTbl),
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for chunk %s: %w", c.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			// New chunk, insert into the chunk table first to get the rowid
			result, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(chunk_id, text, metadata) VALUES (?, ?, ?)`, chunksTbl),
				c.ID, c.Text, string(metaJSON),
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", c.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, vecTbl),
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for chunk %s: %w", c.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added chunks to sqlite-vec",
		"collection", collection,
		"count", len(chunks),
	)

	return nil
}

// Query finds the topK nearest chunks to the given embedding.
func (d *Driver) Query(ctx context.Context, collection string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	if _, err := d.collectionDimensions(ctx, collection); err != nil {
		return nil, err
	}

	queryBlob := serializeFloat32(embedding)

	// KNN query via vec0 MATCH, joined back for chunk ID, text, and metadata.
	query := fmt.Sprintf(`
		SELECT
			c.chunk_id,
			c.text,
			c.metadata,
			ve.distance
		FROM %s ve
		INNER JOIN %s c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, vecTable(collection), chunkTable(collection))

	rows, err := d.db.QueryContext(ctx, query, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var chunkID, text, metaJSON string
		var distance float64
		if err := rows.Scan(&chunkID, &text, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		var metadata map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata for chunk %s: %w", chunkID, err)
		}

		results = append(results, vector.QueryResult{
			Chunk: vector.Chunk{
				ID:       chunkID,
				Text:     text,
				Metadata: metadata,
			},
			Collection: collection,
			Distance:   float32(distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		"collection", collection,
		"results", len(results),
	)

	return results, nil
}

// QueryText is not supported; sqlite-vec stores raw vectors only.
func (d *Driver) QueryText(_ context.Context, _ string, _ string, _ int) ([]vector.QueryResult, error) {
	return nil, vector.ErrTextQueryUnsupported
}

// Count returns the number of chunks in the named collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	if _, err := d.collectionDimensions(ctx, collection); err != nil {
		return 0, err
	}

	var count int
	err := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, chunkTable(collection)),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}

	return count, nil
}

// Peek returns up to limit chunks in insertion order, embeddings omitted.
func (d *Driver) Peek(ctx context.Context, collection string, limit int) ([]vector.Chunk, error) {
	if _, err := d.collectionDimensions(ctx, collection); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT chunk_id, text, metadata
		FROM %s
		ORDER BY rowid
		LIMIT ?
	`, chunkTable(collection))

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("peeking chunks: %w", err)
	}
	defer rows.Close()

	var chunks []vector.Chunk
	for rows.Next() {
		var chunkID, text, metaJSON string
		if err := rows.Scan(&chunkID, &text, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		var metadata map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata for chunk %s: %w", chunkID, err)
		}

		chunks = append(chunks, vector.Chunk{
			ID:       chunkID,
			Text:     text,
			Metadata: metadata,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// DeleteCollection drops the collection's tables and registry entry.
func (d *Driver) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := d.collectionDimensions(ctx, collection); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, vecTable(collection)),
	); err != nil {
		return fmt.Errorf("dropping vec0 table for %s: %w", collection, err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, chunkTable(collection)),
	); err != nil {
		return fmt.Errorf("dropping chunk table for %s: %w", collection, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM collections WHERE name = ?`, collection,
	); err != nil {
		return fmt.Errorf("unregistering collection %s: %w", collection, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted collection", "name", collection)

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}
