package store

import "github.com/pagemark/pagemark/internal/models"

// Store defines the interface for document and note persistence.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks. Absent rows are reported as sql.ErrNoRows;
// callers translate that to their own not-found errors.
type Store interface {
	InsertDocument(doc models.Document) error
	GetDocument(id string) (*models.Document, error)
	GetDocumentByDigest(digest string) (*models.Document, error)
	ListDocuments() ([]models.Document, error)
	DeleteDocument(id string) error
	InsertNote(n *models.Note) error
	GetNote(id int64) (*models.Note, error)
	UpdateNote(id int64, upd NoteUpdate) (*models.Note, error)
	DeleteNote(id int64) error
	ListNotes(documentID string) ([]models.Note, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
