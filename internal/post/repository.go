package post

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles all post database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Save inserts p, or updates the existing row when p.ID is set, and returns
// the stored record.
func (r *Repository) Save(ctx context.Context, p Post) (Post, error) {
	var (
		saved Post
		err   error
	)
	if p.ID == "" {
		err = r.db.QueryRow(ctx,
			`INSERT INTO posts (image_key)
			 VALUES ($1)
			 RETURNING id, image_key, created_at, updated_at`,
			p.ImageKey,
		).Scan(&saved.ID, &saved.ImageKey, &saved.CreatedAt, &saved.UpdatedAt)
	} else {
		err = r.db.QueryRow(ctx,
			`INSERT INTO posts (id, image_key)
			 VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE
			   SET image_key = EXCLUDED.image_key, updated_at = NOW()
			 RETURNING id, image_key, created_at, updated_at`,
			p.ID, p.ImageKey,
		).Scan(&saved.ID, &saved.ImageKey, &saved.CreatedAt, &saved.UpdatedAt)
	}
	if err != nil {
		return Post{}, fmt.Errorf("save post: %w", err)
	}
	return saved, nil
}

// Query returns the posts matching f, oldest first.
func (r *Repository) Query(ctx context.Context, f Filter) ([]Post, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if f.ImageKey != "" {
		rows, err = r.db.Query(ctx,
			`SELECT id, image_key, created_at, updated_at
			 FROM posts WHERE image_key = $1
			 ORDER BY created_at, id`,
			f.ImageKey,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, image_key, created_at, updated_at
			 FROM posts
			 ORDER BY created_at, id`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Post, error) {
		var p Post
		err := row.Scan(&p.ID, &p.ImageKey, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	return posts, nil
}

// Delete removes p by id.
func (r *Repository) Delete(ctx context.Context, p Post) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, p.ID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
