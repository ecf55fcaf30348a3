package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Myash21/vidtube/internal/identity"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// sortColumns whitelists ORDER BY targets; anything else falls back to
// created_at.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"views":      "views",
	"duration":   "duration",
	"title":      "title",
}

// PostgresStore implements Store over PostgreSQL. The pool is owned by the
// caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("video: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const videoColumns = `id, owner_id, title, description, video_url, video_object_id,
thumbnail_url, thumbnail_object_id, duration, views, is_published, created_at, updated_at`

func scanVideo(row pgx.Row) (Video, error) {
	var v Video
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Title, &v.Description,
		&v.VideoURL, &v.VideoObjectID, &v.ThumbnailURL, &v.ThumbnailObjectID,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Video, error) {
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

	row := s.pool.QueryRow(ctx,
		`INSERT INTO videos (
		     id, owner_id, title, description, video_url, video_object_id,
		     thumbnail_url, thumbnail_object_id, duration, views, is_published,
		     created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, TRUE, $10, $10)
		   RETURNING `+videoColumns,
		id, in.OwnerID, title, in.Description,
		in.VideoURL, in.VideoObjectID, in.ThumbnailURL, in.ThumbnailObjectID,
		in.Duration, now,
	)
	return scanVideo(row)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Video, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	v, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	return v, err
}

func (s *PostgresStore) List(ctx context.Context, p ListParams) (Page, error) {
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

	where := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.ViewerID == "" {
		where = append(where, "is_published = TRUE")
	} else {
		where = append(where, "(is_published = TRUE OR owner_id = "+arg(p.ViewerID)+")")
	}
	if p.OwnerID != "" {
		where = append(where, "owner_id = "+arg(p.OwnerID))
	}
	if q := strings.TrimSpace(p.Query); q != "" {
		where = append(where, "title ILIKE "+arg("%"+q+"%"))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM videos`+cond, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	col, ok := sortColumns[p.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(p.SortType, "asc") {
		dir = "ASC"
	}

	query := `SELECT ` + videoColumns + ` FROM videos` + cond +
		` ORDER BY ` + col + ` ` + dir + `, id ` + dir +
		` LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	videos := []Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return Page{}, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	return Page{Videos: videos, Total: total, Page: page, Limit: limit}, nil
}

func (s *PostgresStore) UpdateDetails(ctx context.Context, id string, in UpdateInput) (Video, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE videos
		    SET title = COALESCE($2, title),
		        description = COALESCE($3, description),
		        thumbnail_url = COALESCE($4, thumbnail_url),
		        thumbnail_object_id = COALESCE($5, thumbnail_object_id),
		        updated_at = $6
		  WHERE id = $1
		  RETURNING `+videoColumns,
		id, in.Title, in.Description, in.ThumbnailURL, in.ThumbnailObjectID, time.Now().UTC(),
	)
	v, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	return v, err
}

func (s *PostgresStore) TogglePublish(ctx context.Context, id string) (Video, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE videos SET is_published = NOT is_published, updated_at = $2
		  WHERE id = $1 RETURNING `+videoColumns,
		id, time.Now().UTC(),
	)
	v, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	return v, err
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (Video, error) {
	row := s.pool.QueryRow(ctx,
		`DELETE FROM videos WHERE id = $1 RETURNING `+videoColumns, id)
	v, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	return v, err
}

func (s *PostgresStore) IncrementViews(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	return err
}
