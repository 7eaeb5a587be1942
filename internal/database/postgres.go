// Package database stores embedded chunks in Postgres with pgvector and
// serves similarity queries over them.
package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"textbook-rag/internal/models"
)

// DB represents the database connection
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection
func NewDB(connStr string) (*DB, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Initialize sets up the chunk table and indices. dim is the embedding
// dimension and must match the model used at embed time.
func (db *DB) Initialize(ctx context.Context, dim int) error {
	_, err := db.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = db.Pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS textbook_chunks (
            chunk_id TEXT PRIMARY KEY,
            textbook TEXT NOT NULL,
            node_id TEXT NOT NULL,
            breadcrumb TEXT,
            page_numbers INTEGER[],
            content TEXT NOT NULL,
            embedding vector(%d) NOT NULL
        )
    `, dim))
	if err != nil {
		return fmt.Errorf("failed to create textbook_chunks table: %w", err)
	}

	// Create vector index
	_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS textbook_chunks_embedding_idx ON textbook_chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	// Create indices for better query performance
	_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS textbook_chunks_textbook_idx ON textbook_chunks (textbook);
		CREATE INDEX IF NOT EXISTS textbook_chunks_node_idx ON textbook_chunks (node_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create additional indices: %w", err)
	}

	return nil
}

// StoreChunk inserts or replaces one embedded chunk.
func (db *DB) StoreChunk(ctx context.Context, chunk *models.Chunk) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO textbook_chunks (
            chunk_id, textbook, node_id, breadcrumb,
            page_numbers, content, embedding
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
        ON CONFLICT (chunk_id) DO UPDATE SET
            textbook = EXCLUDED.textbook,
            node_id = EXCLUDED.node_id,
            breadcrumb = EXCLUDED.breadcrumb,
            page_numbers = EXCLUDED.page_numbers,
            content = EXCLUDED.content,
            embedding = EXCLUDED.embedding
    `,
		chunk.ID,
		chunk.Textbook,
		chunk.NodeID,
		chunk.Breadcrumb,
		chunk.Pages,
		chunk.Content,
		vectorLiteral(chunk.Embedding))

	return err
}

// DeleteTextbook removes every chunk of one textbook, returning how many
// rows went away. Used before re-storing so a shrunk re-index leaves no
// stale chunks behind.
func (db *DB) DeleteTextbook(ctx context.Context, textbook string) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM textbook_chunks WHERE textbook = $1`, textbook)
	if err != nil {
		return 0, fmt.Errorf("failed to delete textbook chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QuerySimilar finds the chunks closest to the query embedding by cosine
// distance, optionally restricted to one textbook. Score is cosine
// similarity, higher is closer.
func (db *DB) QuerySimilar(ctx context.Context, embedding []float64, textbook string,
	limit int) ([]models.SearchResult, error) {

	var rows pgx.Rows
	var err error

	if textbook != "" {
		rows, err = db.Pool.Query(ctx, `
			SELECT chunk_id, textbook, node_id, breadcrumb, page_numbers, content,
			       1 - (embedding <=> $1::vector) AS score
			FROM textbook_chunks
			WHERE textbook = $2
			ORDER BY embedding <=> $1::vector
			LIMIT $3
		`, vectorLiteral(embedding), textbook, limit)
	} else {
		rows, err = db.Pool.Query(ctx, `
			SELECT chunk_id, textbook, node_id, breadcrumb, page_numbers, content,
			       1 - (embedding <=> $1::vector) AS score
			FROM textbook_chunks
			ORDER BY embedding <=> $1::vector
			LIMIT $2
		`, vectorLiteral(embedding), limit)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(
			&r.Chunk.ID,
			&r.Chunk.Textbook,
			&r.Chunk.NodeID,
			&r.Chunk.Breadcrumb,
			&r.Chunk.Pages,
			&r.Chunk.Content,
			&r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// ListTextbooks retrieves the distinct textbook names in the store.
func (db *DB) ListTextbooks(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT textbook FROM textbook_chunks ORDER BY textbook
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query textbooks: %w", err)
	}
	defer rows.Close()

	var textbooks []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan textbook: %w", err)
		}
		textbooks = append(textbooks, name)
	}

	return textbooks, nil
}

// vectorLiteral renders an embedding in pgvector's text form so it can
// be passed as a parameter and cast server-side.
func vectorLiteral(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}
