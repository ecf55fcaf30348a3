package video

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Myash21/vidtube/internal/identity"
)

// MemoryStore is an in-memory Store for tests and DB-less dev mode.
type MemoryStore struct {
	mu     sync.Mutex
	videos map[string]*Video
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{videos: make(map[string]*Video)}
}

func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" || in.OwnerID == "" || in.VideoURL == "" {
		return Video{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := identity.NewULID(now)
	if err != nil {
		return Video{}, err
	}

	v := Video{
		ID:                id,
		OwnerID:           in.OwnerID,
		Title:             title,
		Description:       in.Description,
		VideoURL:          in.VideoURL,
		VideoObjectID:     in.VideoObjectID,
		ThumbnailURL:      in.ThumbnailURL,
		ThumbnailObjectID: in.ThumbnailObjectID,
		Duration:          in.Duration,
		IsPublished:       true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[id] = &v
	return v, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	return *v, nil
}

func (s *MemoryStore) List(ctx context.Context, p ListParams) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	q := strings.ToLower(strings.TrimSpace(p.Query))

	s.mu.Lock()
	matched := make([]Video, 0, len(s.videos))
	for _, v := range s.videos {
		if !v.IsPublished && (p.ViewerID == "" || v.OwnerID != p.ViewerID) {
			continue
		}
		if p.OwnerID != "" && v.OwnerID != p.OwnerID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(v.Title), q) {
			continue
		}
		matched = append(matched, *v)
	}
	s.mu.Unlock()

	asc := strings.EqualFold(p.SortType, "asc")
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch p.SortBy {
		case "views":
			less = matched[i].Views < matched[j].Views
		case "duration":
			less = matched[i].Duration < matched[j].Duration
		case "title":
			less = matched[i].Title < matched[j].Title
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return Page{Videos: matched[start:end], Total: total, Page: page, Limit: limit}, nil
}

func (s *MemoryStore) UpdateDetails(ctx context.Context, id string, in UpdateInput) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return Video{}, ErrNotFound
	}

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return Video{}, ErrInvalidInput
		}
		v.Title = t
	}
	if in.Description != nil {
		v.Description = *in.Description
	}
	if in.ThumbnailURL != nil {
		v.ThumbnailURL = *in.ThumbnailURL
	}
	if in.ThumbnailObjectID != nil {
		v.ThumbnailObjectID = *in.ThumbnailObjectID
	}
	v.UpdatedAt = time.Now().UTC()
	return *v, nil
}

func (s *MemoryStore) TogglePublish(ctx context.Context, id string) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	v.IsPublished = !v.IsPublished
	v.UpdatedAt = time.Now().UTC()
	return *v, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (Video, error) {
	if err := ctx.Err(); err != nil {
		return Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	delete(s.videos, id)
	return *v, nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[id]; ok {
		v.Views++
	}
	return nil
}
