package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/picstream/service/internal/storage"
)

// FeedPageSize is the fixed number of posts per feed page.
const FeedPageSize = 10

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	maxCaptionLen  = 256
)

// ErrUnsupportedMedia is returned when an upload declares a MIME type outside
// the allow-list.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// ErrInvalidInput is returned when upload metadata fails validation.
var ErrInvalidInput = errors.New("invalid input")

// extensionForMIME is the upload allow-list.
var extensionForMIME = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
}

// Store is the metadata-store contract the service depends on. *Repository
// implements it against Postgres.
type Store interface {
	Insert(ctx context.Context, id, username, blobPath string, caption *string) (*Post, error)
	DeleteByID(ctx context.Context, id string) (string, error)
	GetByID(ctx context.Context, id string) (*Post, error)
	ListByUsername(ctx context.Context, username string) ([]Post, error)
	ListByUsernames(ctx context.Context, usernames []string, limit, offset int) ([]Post, error)
	UpdateCaption(ctx context.Context, id string, caption *string) error
}

// CreateInput is the transient upload request consumed by Create.
type CreateInput struct {
	Username    string
	Caption     *string
	ContentType string
	Data        io.Reader
	Size        int64
}

// Service orchestrates the blob store and the metadata store. Within one
// operation the two side effects always run sequentially; consistency between
// the stores is enforced by that ordering alone.
type Service struct {
	store Store
	blobs storage.Storage
}

// NewService creates a new post Service.
func NewService(store Store, blobs storage.Storage) *Service {
	return &Service{store: store, blobs: blobs}
}

// Create validates the upload, writes the image to the blob store, then
// inserts the metadata row. The blob write comes first so a row never points
// at a missing image. If the insert fails the blob is not rolled back; the
// orphaned object is left behind.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if n := utf8.RuneCountInString(in.Username); n < minUsernameLen || n > maxUsernameLen {
		return "", fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if in.Caption != nil && utf8.RuneCountInString(*in.Caption) > maxCaptionLen {
		return "", fmt.Errorf("%w: caption must be at most %d characters", ErrInvalidInput, maxCaptionLen)
	}
	ext, ok := extensionForMIME[in.ContentType]
	if !ok {
		return "", ErrUnsupportedMedia
	}

	id := uuid.NewString()
	blobPath := id + "." + ext

	if err := s.blobs.Upload(ctx, blobPath, in.Data, in.Size, in.ContentType); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	if _, err := s.store.Insert(ctx, id, in.Username, blobPath, in.Caption); err != nil {
		return "", err
	}

	return id, nil
}

// Delete removes the metadata row first, then the blob it referenced. A failed
// blob deletion is logged and swallowed: the row is already gone, so the
// operation has succeeded from the caller's perspective and only an orphaned
// object remains.
func (s *Service) Delete(ctx context.Context, id string) error {
	blobPath, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, blobPath); err != nil {
		log.Printf("post: blob cleanup failed for %q: %v", blobPath, err)
	}

	return nil
}

// Get returns a single post by id.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ImgURL = s.blobs.PublicURL(p.BlobPath)
	return p, nil
}

// ListByUsername returns all posts by one author, oldest first. A user with no
// posts yields an empty slice, not an error.
func (s *Service) ListByUsername(ctx context.Context, username string) ([]Post, error) {
	posts, err := s.store.ListByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	s.resolveURLs(posts)
	return posts, nil
}

// UpdateCaption sets the caption of the given post. Updating a post that does
// not exist is a silent no-op, matching the store semantics.
func (s *Service) UpdateCaption(ctx context.Context, id string, caption *string) error {
	return s.store.UpdateCaption(ctx, id, caption)
}

// FeedByFollowing returns one page of posts authored by the followed
// usernames, oldest first. An empty following list yields an empty page
// without touching the store.
func (s *Service) FeedByFollowing(ctx context.Context, followings []string, page int) ([]Post, error) {
	if len(followings) == 0 {
		return []Post{}, nil
	}

	posts, err := s.store.ListByUsernames(ctx, followings, FeedPageSize, page*FeedPageSize)
	if err != nil {
		return nil, err
	}
	s.resolveURLs(posts)
	return posts, nil
}

// IsNotFound returns true when the error indicates a post was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func (s *Service) resolveURLs(posts []Post) {
	for i := range posts {
		posts[i].ImgURL = s.blobs.PublicURL(posts[i].BlobPath)
	}
}
