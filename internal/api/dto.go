package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pagemark/pagemark/internal/store"
)

// CreateNoteRequest is the request body for creating a note. Content and
// category may be empty; page number and coordinates must be present
// (zero is a valid page index and a valid coordinate, so presence is
// modelled with pointers rather than zero-value checks).
type CreateNoteRequest struct {
	DocumentID string   `json:"document_id"`
	Content    string   `json:"content"`
	PageNumber *int     `json:"page_number"`
	XPosition  *float64 `json:"x_position"`
	YPosition  *float64 `json:"y_position"`
	Category   string   `json:"category"`
}

// Validate validates the create-note request.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.PageNumber, validation.NotNil),
		validation.Field(&r.XPosition, validation.NotNil),
		validation.Field(&r.YPosition, validation.NotNil),
	)
}

// UpdateNoteRequest is the request body for partially updating a note.
// Fields omitted from the request are left untouched.
type UpdateNoteRequest struct {
	Content    *string  `json:"content"`
	Category   *string  `json:"category"`
	PageNumber *int     `json:"page_number"`
	XPosition  *float64 `json:"x_position"`
	YPosition  *float64 `json:"y_position"`
}

// noteUpdate converts the request into the store's partial-update record.
func (r UpdateNoteRequest) noteUpdate() store.NoteUpdate {
	return store.NoteUpdate{
		Content:    r.Content,
		Category:   r.Category,
		PageNumber: r.PageNumber,
		XPosition:  r.XPosition,
		YPosition:  r.YPosition,
	}
}
