package post

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/picstream/service/internal/response"
)

// maxUploadBytes caps the multipart form size for uploads (32 MiB).
const maxUploadBytes = 32 << 20

// Handler holds HTTP handlers for post endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new post Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type updateCaptionRequest struct {
	Caption *string `json:"caption" example:"sunset over the bay"`
}

type feedRequest struct {
	Page       int      `json:"page"       example:"0"`
	Followings []string `json:"followings" example:"alice,bob"`
}

type createdData struct {
	ID string `json:"id" example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
}

type postsData struct {
	Posts []Post `json:"posts"`
}

// Upload godoc
//
//	@Summary		Upload a post
//	@Description	Accepts a multipart form with an image (PNG or JPEG), the author's username, and an optional caption. Stores the image bytes and the post metadata, returning the new post id.
//	@Tags			posts
//	@Accept			mpfd
//	@Produce		json
//	@Param			username	formData	string	true	"Author username (3-20 characters)"
//	@Param			caption		formData	string	false	"Caption (max 256 characters)"
//	@Param			img_file	formData	file	true	"Image file (image/png or image/jpeg)"
//	@Success		201			{object}	response.Envelope{data=createdData}
//	@Failure		400			{object}	response.Envelope
//	@Failure		415			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/posts [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("img_file")
	if err != nil {
		response.BadRequest(w, "img_file is required")
		return
	}
	defer file.Close()

	var caption *string
	if _, ok := r.MultipartForm.Value["caption"]; ok {
		v := r.FormValue("caption")
		caption = &v
	}

	id, err := h.svc.Create(r.Context(), CreateInput{
		Username:    r.FormValue("username"),
		Caption:     caption,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
		Size:        header.Size,
	})
	if errors.Is(err, ErrInvalidInput) {
		response.BadRequest(w, err.Error())
		return
	}
	if errors.Is(err, ErrUnsupportedMedia) {
		response.UnsupportedMediaType(w, "image must be PNG or JPEG")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, createdData{ID: id})
}

// Get godoc
//
//	@Summary		Get a post
//	@Description	Returns a single post by id.
//	@Tags			posts
//	@Produce		json
//	@Param			id	path		string	true	"Post id (UUID)"
//	@Success		200	{object}	response.Envelope{data=Post}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "post not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, p)
}

// Delete godoc
//
//	@Summary		Delete a post
//	@Description	Removes the post metadata and, best effort, the stored image.
//	@Tags			posts
//	@Produce		json
//	@Param			id	path		string	true	"Post id (UUID)"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "post not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, nil)
}

// UpdateCaption godoc
//
//	@Summary		Update a post caption
//	@Description	Replaces the caption of an existing post. Only the caption is mutable.
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Post id (UUID)"
//	@Param			request	body		updateCaptionRequest	true	"New caption"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/posts/{id} [patch]
func (h *Handler) UpdateCaption(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateCaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Caption != nil && utf8.RuneCountInString(*req.Caption) > maxCaptionLen {
		response.BadRequest(w, "caption must be at most 256 characters")
		return
	}

	if err := h.svc.UpdateCaption(r.Context(), id, req.Caption); err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, nil)
}

// ListByUsername godoc
//
//	@Summary		List a user's posts
//	@Description	Returns all posts by one author, oldest first. An unknown username yields an empty list.
//	@Tags			posts
//	@Produce		json
//	@Param			username	path		string	true	"Author username"
//	@Success		200			{object}	response.Envelope{data=postsData}
//	@Failure		500			{object}	response.Envelope
//	@Router			/users/{username}/posts [get]
func (h *Handler) ListByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	posts, err := h.svc.ListByUsername(r.Context(), username)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, postsData{Posts: posts})
}

// Feed godoc
//
//	@Summary		Feed of followed users
//	@Description	Returns one page (10 posts, oldest first) authored by the followed usernames.
//	@Tags			feed
//	@Accept			json
//	@Produce		json
//	@Param			request	body		feedRequest	true	"Page number and followed usernames"
//	@Success		200		{object}	response.Envelope{data=postsData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/feed [post]
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Page < 0 {
		response.BadRequest(w, "page must not be negative")
		return
	}

	posts, err := h.svc.FeedByFollowing(r.Context(), req.Followings, req.Page)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, postsData{Posts: posts})
}

// pathID extracts and validates the {id} path parameter, writing a 400 on
// malformed input.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(w, "invalid post id")
		return "", false
	}
	return id, true
}
