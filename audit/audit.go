// Package audit persists the integrity records produced by signing
// operations. Entries are append-only.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/digitorus/pdfstamp/integrity"
)

// ErrDuplicateEntry is returned when an entry with the same ID already exists.
var ErrDuplicateEntry = errors.New("audit entry already exists")

// Entry is a stored integrity record together with the location of the
// artifact it describes.
type Entry struct {
	ID uuid.UUID `json:"id"`
	integrity.Record
	// URL is where the signed artifact is served.
	URL string `json:"url"`
}

// NewEntry wraps rec in an Entry with a fresh ID.
func NewEntry(rec integrity.Record, url string) Entry {
	return Entry{ID: uuid.New(), Record: rec, URL: url}
}

// Store is the contract for audit persistence.
type Store interface {
	// Create appends entry. Entries are never updated.
	Create(ctx context.Context, entry *Entry) error
	// ListByDocument returns entries for documentID, oldest first, and the
	// total number of entries for the document.
	ListByDocument(ctx context.Context, documentID string, offset, limit int) ([]Entry, int, error)
	Close()
}

// DefaultLimit is used by ListByDocument when limit is not positive.
const DefaultLimit = 100

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return offset, limit
}

// truncate drops precision the database cannot store so that an entry read
// back compares equal to the one written.
func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
