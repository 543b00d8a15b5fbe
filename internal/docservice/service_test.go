package docservice

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pagemark/pagemark/internal/apperr"
	"github.com/pagemark/pagemark/internal/blob"
	"github.com/pagemark/pagemark/internal/checksum"
	"github.com/pagemark/pagemark/internal/models"
	"github.com/pagemark/pagemark/internal/store"
	"github.com/pagemark/pagemark/internal/testutil"
)

var pdfBytes = []byte("%PDF-1.4\nfake pdf body\n%%EOF")

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	db := testutil.TestDB(t)
	dir, blobs := testutil.TestBlobs(t)
	return NewService(blobs, db), dir
}

func TestUpload_StoresDocumentAndFile(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.ID == "" {
		t.Error("id not assigned")
	}
	if doc.Title != "report.pdf" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.StoragePath != blob.Location(doc.ContentDigest) {
		t.Errorf("storage_path = %q, digest = %q", doc.StoragePath, doc.ContentDigest)
	}
	if _, err := os.Stat(filepath.Join(dir, doc.StoragePath)); err != nil {
		t.Errorf("backing file missing: %v", err)
	}
}

func TestUpload_DuplicateBytesReturnExistingDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	// Same bytes under a different name still resolve to the first document.
	second, err := svc.Upload(ctx, "copy-of-report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate upload created a new document: %q vs %q", second.ID, first.ID)
	}
	if second.Title != first.Title {
		t.Errorf("duplicate upload changed the title: %q", second.Title)
	}

	docs, err := svc.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("len(docs) = %d, want 1", len(docs))
	}
}

func TestUpload_DifferentBytesAreDistinct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Upload(ctx, "a.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	changed := append(append([]byte{}, pdfBytes...), '!')
	b, err := svc.Upload(ctx, "b.pdf", changed)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("distinct content should produce distinct documents")
	}
	if a.ContentDigest == b.ContentDigest {
		t.Error("distinct content should produce distinct digests")
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"report.txt", "report", "report.pdf.exe", ""} {
		if _, err := svc.Upload(ctx, name, pdfBytes); !errors.Is(err, apperr.ErrUnsupportedFormat) {
			t.Errorf("Upload(%q) err = %v, want ErrUnsupportedFormat", name, err)
		}
	}
}

// racingStore simulates the digest race: the dedup pre-check sees no row
// (the concurrent winner has not committed yet), but by insert time the
// winner's row exists and the unique constraint fires.
type racingStore struct {
	store.Store
	lookups int
}

func (s *racingStore) GetDocumentByDigest(digest string) (*models.Document, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, sql.ErrNoRows
	}
	return s.Store.GetDocumentByDigest(digest)
}

func TestUpload_LostDigestRaceReturnsWinner(t *testing.T) {
	db := testutil.TestDB(t)
	_, blobs := testutil.TestBlobs(t)
	rs := &racingStore{Store: db}
	svc := NewService(blobs, rs)

	digest := checksum.Sum(pdfBytes)
	winner := models.Document{
		ID:            "winner",
		Title:         "report.pdf",
		ContentDigest: digest,
		StoragePath:   blob.Location(digest),
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.InsertDocument(winner); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.Upload(context.Background(), "report.pdf", pdfBytes)
	if err != nil {
		t.Fatalf("losing the digest race should not surface an error: %v", err)
	}
	if doc.ID != "winner" {
		t.Errorf("id = %q, want the winner's row", doc.ID)
	}
	if rs.lookups < 2 {
		t.Errorf("lookups = %d, want a re-fetch after the constraint violation", rs.lookups)
	}

	docs, err := svc.ListDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("len(docs) = %d, want 1", len(docs))
	}
}

func TestUpload_ExtensionCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Upload(context.Background(), "REPORT.PDF", pdfBytes); err != nil {
		t.Errorf("uppercase extension should be accepted: %v", err)
	}
}

func TestGetDocument_IncludesNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, models.Note{DocumentID: doc.ID, Content: "hi", PageNumber: 1}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if len(got.Notes) != 1 {
		t.Errorf("len(notes) = %d, want 1", len(got.Notes))
	}
}

func TestGetDocument_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetDocument(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenFile_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}

	got, rc, err := svc.OpenFile(ctx, doc.ID)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer rc.Close()
	if got.ID != doc.ID {
		t.Errorf("id = %q", got.ID)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(pdfBytes) {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestOpenFile_MissingBackingFile(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, doc.StoragePath)); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.OpenFile(ctx, doc.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocument_RemovesEverything(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	note, err := svc.CreateNote(ctx, models.Note{DocumentID: doc.ID, PageNumber: 1})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, err := svc.GetDocument(ctx, doc.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("document still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, doc.StoragePath)); !os.IsNotExist(err) {
		t.Errorf("backing file still present: %v", err)
	}
	if err := svc.DeleteNote(ctx, note.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("note survived cascade: %v", err)
	}
}

func TestDeleteDocument_MissingBackingFileStillSucceeds(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, doc.StoragePath)); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDocument(ctx, doc.ID); err != nil {
		t.Errorf("delete should succeed when the file is already gone: %v", err)
	}
}

func TestDeleteDocument_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.DeleteDocument(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateNote_UnknownDocument(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateNote(context.Background(), models.Note{DocumentID: "ghost", PageNumber: 1})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNote_PartialSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "report.pdf", pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	note, err := svc.CreateNote(ctx, models.Note{
		DocumentID: doc.ID,
		Content:    "original",
		PageNumber: 3,
		XPosition:  0.5,
		YPosition:  0.5,
		Category:   "todo",
	})
	if err != nil {
		t.Fatal(err)
	}

	page := 7
	got, err := svc.UpdateNote(ctx, note.ID, store.NoteUpdate{PageNumber: &page})
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if got.PageNumber != 7 {
		t.Errorf("page = %d, want 7", got.PageNumber)
	}
	if got.Content != "original" || got.Category != "todo" {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestUpdateNote_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	c := "x"
	_, err := svc.UpdateNote(context.Background(), 999, store.NoteUpdate{Content: &c})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListNotes_NeverNil(t *testing.T) {
	svc, _ := newTestService(t)
	notes, err := svc.ListNotes(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if notes == nil {
		t.Error("notes should be an empty slice, not nil")
	}
}
