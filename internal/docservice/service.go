// Package docservice implements the document and note domain logic:
// upload deduplication, cascade-consistent deletes, and partial note updates.
package docservice

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagemark/pagemark/internal/apperr"
	"github.com/pagemark/pagemark/internal/blob"
	"github.com/pagemark/pagemark/internal/checksum"
	"github.com/pagemark/pagemark/internal/models"
	"github.com/pagemark/pagemark/internal/store"
)

// Service coordinates blob storage and the relational store.
type Service struct {
	blobs blob.Provider
	db    store.Store
}

// NewService creates a new document service.
func NewService(blobs blob.Provider, db store.Store) *Service {
	return &Service{blobs: blobs, db: db}
}

// Upload ingests a PDF. Identical bytes always resolve to the already-stored
// document: the content digest is checked before writing, and a concurrent
// upload losing the race on the unique digest column re-reads the winner's
// row instead of failing.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	if !strings.EqualFold(filepath.Ext(filename), blob.Extension) {
		return nil, apperr.ErrUnsupportedFormat
	}

	digest := checksum.Sum(data)

	existing, err := s.db.GetDocumentByDigest(digest)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := s.blobs.Put(ctx, data); err != nil {
		return nil, err
	}

	doc := models.Document{
		ID:            uuid.NewString(),
		Title:         filename,
		ContentDigest: digest,
		StoragePath:   blob.Location(digest),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.db.InsertDocument(doc); err != nil {
		if store.IsUniqueViolation(err) {
			// Someone else created this document between the digest check
			// and our insert; their row is the document.
			return s.db.GetDocumentByDigest(digest)
		}
		return nil, err
	}
	return &doc, nil
}

// GetDocument returns a document with its notes attached. The notes slice is
// never nil, so the detail response always carries a notes array.
func (s *Service) GetDocument(_ context.Context, id string) (*models.DocumentWithNotes, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	notes, err := s.db.ListNotes(id)
	if err != nil {
		return nil, err
	}
	return &models.DocumentWithNotes{Document: *doc, Notes: nonNilSlice(notes)}, nil
}

// ListDocuments returns all documents, metadata only.
func (s *Service) ListDocuments(_ context.Context) ([]models.Document, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(docs), nil
}

// OpenFile returns the document metadata and a reader over its raw bytes.
// The caller must close the reader. A missing document row or a missing
// backing file both surface as ErrNotFound.
func (s *Service) OpenFile(ctx context.Context, id string) (*models.Document, io.ReadCloser, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperr.ErrNotFound
		}
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, apperr.ErrNotFound
		}
		return nil, nil, err
	}
	return doc, rc, nil
}

// DeleteDocument removes the backing file and the document row; the store
// deletes all owned notes in the same transaction. File removal is
// best-effort in the sense that an already-absent file is not an error.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return err
	}
	if err := s.blobs.Remove(ctx, doc.StoragePath); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return err
	}
	return nil
}

// CreateNote inserts a note for an existing document and returns it with the
// assigned id. Fails with ErrNotFound when the document does not exist.
func (s *Service) CreateNote(_ context.Context, note models.Note) (*models.Note, error) {
	if _, err := s.db.GetDocument(note.DocumentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	note.UpdatedAt = time.Now().UTC()
	if err := s.db.InsertNote(&note); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote applies a partial update: only the fields present in upd change,
// and updated_at is refreshed.
func (s *Service) UpdateNote(_ context.Context, id int64, upd store.NoteUpdate) (*models.Note, error) {
	note, err := s.db.UpdateNote(id, upd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return note, nil
}

// DeleteNote removes a single note.
func (s *Service) DeleteNote(_ context.Context, id int64) error {
	if err := s.db.DeleteNote(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return err
	}
	return nil
}

// ListNotes returns all notes for a document. Unknown document ids yield an
// empty slice, not an error.
func (s *Service) ListNotes(_ context.Context, documentID string) ([]models.Note, error) {
	notes, err := s.db.ListNotes(documentID)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(notes), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
