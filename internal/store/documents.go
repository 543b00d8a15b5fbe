package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/pagemark/pagemark/internal/models"
)

// InsertDocument inserts a new document row. A second document with the same
// content digest violates the unique constraint; callers can recognise that
// case with IsUniqueViolation.
func (db *DB) InsertDocument(doc models.Document) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (id, title, content_digest, storage_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, doc.ID, doc.Title, doc.ContentDigest, doc.StoragePath, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	return nil
}

// GetDocument returns the document with the given id, or sql.ErrNoRows.
func (db *DB) GetDocument(id string) (*models.Document, error) {
	return db.getDocument(`SELECT id, title, content_digest, storage_path, created_at FROM documents WHERE id = ?`, id)
}

// GetDocumentByDigest returns the document with the given content digest,
// or sql.ErrNoRows. This is the upload deduplication lookup.
func (db *DB) GetDocumentByDigest(digest string) (*models.Document, error) {
	return db.getDocument(`SELECT id, title, content_digest, storage_path, created_at FROM documents WHERE content_digest = ?`, digest)
}

func (db *DB) getDocument(query string, arg any) (*models.Document, error) {
	var doc models.Document
	err := db.conn.QueryRow(query, arg).
		Scan(&doc.ID, &doc.Title, &doc.ContentDigest, &doc.StoragePath, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents (metadata only, no note expansion),
// oldest first.
func (db *DB) ListDocuments() ([]models.Document, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, content_digest, storage_path, created_at
		FROM documents
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.ContentDigest, &doc.StoragePath, &doc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and all of its notes in one transaction.
// Notes are deleted explicitly before the document row; the ON DELETE CASCADE
// rule is a second line of defence, not the mechanism relied upon.
// Returns sql.ErrNoRows when the document does not exist.
func (db *DB) DeleteDocument(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM notes WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete notes for document: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// violation. Two concurrent uploads of identical content race on the
// content_digest column; the loser sees this error and should re-read.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
