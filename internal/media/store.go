// Package media abstracts binary object storage for avatars, covers,
// thumbnails and video files. The rest of the system only sees opaque
// {URL, ID} pairs; deletion is by ID.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a delete targets a missing object.
var ErrNotFound = errors.New("media: object not found")

// Object is a stored binary: a public URL for clients and a storage ID for
// later deletion.
type Object struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Store is the object-storage collaborator.
type Store interface {
	// Upload stores the content and returns its public URL and storage ID.
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (Object, error)
	// Delete removes a previously uploaded object by its storage ID.
	Delete(ctx context.Context, id string) error
}

// NewStorageKey builds a date-bucketed random key, keeping the original
// file extension so content type survives naive serving setups.
func NewStorageKey(filename string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("media/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), path.Ext(filename))
}
