package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/attendance/internal/database"
)

// EmbeddingRepository provides PostgreSQL-backed face embedding storage (pgvector)
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// SaveEmbedding stores an enrolled face embedding
func (r *EmbeddingRepository) SaveEmbedding(ctx context.Context, emb *database.StoredEmbedding) error {
	query := `
		INSERT INTO student_embeddings (student_id, embedding, quality)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, emb.StudentID, pgvector.NewVector(emb.Embedding), emb.Quality).
		Scan(&emb.ID, &emb.CreatedAt)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// ListEmbeddings returns all enrolled embeddings
func (r *EmbeddingRepository) ListEmbeddings(ctx context.Context) ([]database.StoredEmbedding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, embedding, quality, created_at
		FROM student_embeddings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []database.StoredEmbedding
	for rows.Next() {
		var emb database.StoredEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&emb.ID, &emb.StudentID, &vec, &emb.Quality, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		emb.Embedding = vec.Slice()
		embeddings = append(embeddings, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return embeddings, nil
}

// CountEmbeddings returns the number of enrolled embeddings
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM student_embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}
