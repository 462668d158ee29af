// Package post manages image posts and their persistence across the metadata
// store and the blob store.
package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Post is a persisted content item. BlobPath locates the image in the blob
// store; ImgURL is derived from it when the post is read back.
type Post struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	BlobPath  string    `json:"blobPath"`
	ImgURL    string    `json:"imgUrl,omitempty"`
	Caption   *string   `json:"caption,omitempty"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrNotFound is returned when a post does not exist.
var ErrNotFound = errors.New("post not found")

// Repository handles all post database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert creates a new post row. Likes and created_at take their column defaults.
func (r *Repository) Insert(ctx context.Context, id, username, blobPath string, caption *string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO posts (id, username, blob_path, caption, likes, created_at)
		 VALUES ($1, $2, $3, $4, DEFAULT, DEFAULT)
		 RETURNING id, username, blob_path, caption, likes, created_at`,
		id, username, blobPath, caption,
	).Scan(&p.ID, &p.Username, &p.BlobPath, &p.Caption, &p.Likes, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

// DeleteByID removes the post row and returns its blob path so the caller can
// clean up the stored image.
func (r *Repository) DeleteByID(ctx context.Context, id string) (string, error) {
	var blobPath string
	err := r.db.QueryRow(ctx,
		`DELETE FROM posts WHERE id = $1 RETURNING blob_path`,
		id,
	).Scan(&blobPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete post: %w", err)
	}
	return blobPath, nil
}

// GetByID fetches a single post by its UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRow(ctx,
		`SELECT id, username, blob_path, caption, likes, created_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Username, &p.BlobPath, &p.Caption, &p.Likes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return p, nil
}

// ListByUsername fetches all posts by one author, oldest first.
func (r *Repository) ListByUsername(ctx context.Context, username string) ([]Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, blob_path, caption, likes, created_at
		 FROM posts
		 WHERE username = $1
		 ORDER BY created_at`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts by username: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListByUsernames fetches one page of posts authored by any of the given
// usernames, oldest first.
func (r *Repository) ListByUsernames(ctx context.Context, usernames []string, limit, offset int) ([]Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, blob_path, caption, likes, created_at
		 FROM posts
		 WHERE username = ANY($1)
		 ORDER BY created_at
		 LIMIT $2 OFFSET $3`,
		usernames, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts by usernames: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// UpdateCaption sets the caption of the given post. Updating a post that does
// not exist affects zero rows and is not an error.
func (r *Repository) UpdateCaption(ctx context.Context, id string, caption *string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE posts SET caption = $1 WHERE id = $2`,
		caption, id,
	)
	if err != nil {
		return fmt.Errorf("update caption: %w", err)
	}
	return nil
}

func scanPosts(rows pgx.Rows) ([]Post, error) {
	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Username, &p.BlobPath, &p.Caption, &p.Likes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
