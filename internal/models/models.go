// Package models defines the domain types for Pagemark.
package models

import "time"

// Document represents a stored PDF file and its metadata record.
// ContentDigest is unique across all documents and is the deduplication key
// for uploads. StoragePath is the blob-store location of the raw bytes.
type Document struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ContentDigest string    `json:"content_digest"`
	StoragePath   string    `json:"storage_path"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentWithNotes is the detail view of a document: its metadata plus every
// note anchored to it. Notes is always present in the JSON form, empty when
// the document has no annotations yet.
type DocumentWithNotes struct {
	Document
	Notes []Note `json:"notes"`
}

// Note is a positional annotation anchored to a page and fractional (x, y)
// coordinate within a document. A note belongs to exactly one document for
// its lifetime and is removed when the document is deleted.
type Note struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	PageNumber int       `json:"page_number"`
	XPosition  float64   `json:"x_position"`
	YPosition  float64   `json:"y_position"`
	Category   string    `json:"category"`
	UpdatedAt  time.Time `json:"updated_at"`
}
