package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pagemark/pagemark/internal/models"
)

// NoteUpdate is an explicit partial-update record for a note. Only non-nil
// fields are written; everything else keeps its stored value. UpdatedAt is
// always refreshed.
type NoteUpdate struct {
	Content    *string
	Category   *string
	PageNumber *int
	XPosition  *float64
	YPosition  *float64
}

// InsertNote inserts a note and fills in its assigned id.
// The document_id foreign key must reference an existing document.
func (db *DB) InsertNote(n *models.Note) error {
	res, err := db.conn.Exec(`
		INSERT INTO notes (document_id, content, page_number, x_position, y_position, category, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.DocumentID, n.Content, n.PageNumber, n.XPosition, n.YPosition, n.Category, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: note insert id: %w", err)
	}
	n.ID = id
	return nil
}

// GetNote returns the note with the given id, or sql.ErrNoRows.
func (db *DB) GetNote(id int64) (*models.Note, error) {
	var n models.Note
	err := db.conn.QueryRow(`
		SELECT id, document_id, content, page_number, x_position, y_position, category, updated_at
		FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.DocumentID, &n.Content, &n.PageNumber, &n.XPosition, &n.YPosition, &n.Category, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return &n, nil
}

// UpdateNote applies upd to the note with the given id and returns the
// updated row. Returns sql.ErrNoRows when the note does not exist.
func (db *DB) UpdateNote(id int64, upd NoteUpdate) (*models.Note, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *upd.Content)
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.PageNumber != nil {
		sets = append(sets, "page_number = ?")
		args = append(args, *upd.PageNumber)
	}
	if upd.XPosition != nil {
		sets = append(sets, "x_position = ?")
		args = append(args, *upd.XPosition)
	}
	if upd.YPosition != nil {
		sets = append(sets, "y_position = ?")
		args = append(args, *upd.YPosition)
	}
	args = append(args, id)

	res, err := db.conn.Exec(`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}

	return db.GetNote(id)
}

// DeleteNote removes the note with the given id.
// Returns sql.ErrNoRows when the note does not exist.
func (db *DB) DeleteNote(id int64) error {
	res, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListNotes returns all notes for a document, oldest first. An unknown
// document id yields an empty slice, matching the underlying query semantics.
func (db *DB) ListNotes(documentID string) ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT id, document_id, content, page_number, x_position, y_position, category, updated_at
		FROM notes WHERE document_id = ?
		ORDER BY id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.DocumentID, &n.Content, &n.PageNumber, &n.XPosition, &n.YPosition, &n.Category, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
