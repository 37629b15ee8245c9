package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

/*
	-- Snippet documents (id is the room's public id: slug or storage id)
	CREATE TABLE documents (
		id          TEXT PRIMARY KEY,
		content     TEXT NOT NULL DEFAULT '',
		language    TEXT NOT NULL DEFAULT 'plaintext',
		title       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *DocumentRepo) FetchDocument(ctx context.Context, roomID string) (*domain.Document, error) {
	doc := &domain.Document{ID: roomID}
	query := `SELECT content, language, title, created_at, updated_at FROM documents WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, roomID).
		Scan(&doc.Content, &doc.Language, &doc.Title, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) CreateDocument(ctx context.Context, roomID string, initialContent string) (*domain.Document, error) {
	doc := &domain.Document{ID: roomID, Content: initialContent}
	// Insert or, when a concurrent first join already created the row,
	// return the existing record untouched
	query := `INSERT INTO documents (id, content)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
        RETURNING content, language, title, created_at, updated_at`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, roomID, initialContent).
		Scan(&doc.Content, &doc.Language, &doc.Title, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) PersistDocument(ctx context.Context, roomID string, content string) error {
	query := `UPDATE documents SET content = $2, updated_at = now() WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, roomID, content)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
