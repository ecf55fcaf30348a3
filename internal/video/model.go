// Package video owns the video catalog: publishing, listing with
// pagination/search, detail updates, publish toggling, and deletion.
package video

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a video id resolves to nothing visible.
var ErrNotFound = errors.New("video not found")

// ErrInvalidInput is returned for empty/invalid create or update input.
var ErrInvalidInput = errors.New("invalid video input")

// Video is one catalog entry. Storage object ids stay server-side.
type Video struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	VideoURL          string    `json:"videoFile"`
	VideoObjectID     string    `json:"-"`
	ThumbnailURL      string    `json:"thumbnail"`
	ThumbnailObjectID string    `json:"-"`
	Duration          float64   `json:"duration"`
	Views             int64     `json:"views"`
	IsPublished       bool      `json:"isPublished"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CreateInput carries a new catalog entry; URLs and object ids come from the
// media store.
type CreateInput struct {
	OwnerID           string
	Title             string
	Description       string
	VideoURL          string
	VideoObjectID     string
	ThumbnailURL      string
	ThumbnailObjectID string
	Duration          float64
	Now               time.Time
}

// UpdateInput updates mutable details. Nil means "leave as is".
type UpdateInput struct {
	Title             *string
	Description       *string
	ThumbnailURL      *string
	ThumbnailObjectID *string
}

// ListParams drives pagination, search and sorting.
// Page is 1-based; Limit is clamped by the store.
type ListParams struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string // created_at | views | duration | title
	SortType string // asc | desc
	OwnerID  string // restrict to one owner when non-empty
	// ViewerID lifts the published-only filter for the viewer's own videos.
	ViewerID string
}

// Page is one page of results plus the total match count.
type Page struct {
	Videos []Video `json:"videos"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}
