package post

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openblog/openblog-api/app/observability/metrics"
	"github.com/openblog/openblog-api/internal/api"
	"github.com/openblog/openblog-api/internal/api/auth"
	"github.com/openblog/openblog-api/internal/types"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing;
// larger parts spill to temp files.
const maxUploadMemory = 32 << 20

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	postService Service
	logger      *slog.Logger
}

func NewHandlerImpl(postService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		postService: postService,
		logger:      logger,
	}
}

// Create godoc
// @Summary      Create a post
// @Description  Creates a post authored by the caller, with optional image attachments
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Param        post   formData  string  true   "Post fields as JSON"
// @Param        files  formData  file    false  "Image attachments"
// @Success      201  {object}  types.Post
// @Failure      400  {object}  api.Response
// @Failure      401  {object}  api.Response
// @Security     BearerAuth
// @Router       /posts/create [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Create"))
	ctx := r.Context()
	metrics.Get().PostCreateRequestsTotal.Add(ctx, 1)

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		l.WarnContext(ctx, "Failed to parse multipart form", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Request must be multipart/form-data")
		return
	}

	postField := r.FormValue("post")
	if postField == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing post field")
		return
	}
	var params types.CreatePostParams
	if err := json.Unmarshal([]byte(postField), &params); err != nil {
		l.WarnContext(ctx, "Invalid post payload", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid post payload")
		return
	}
	if params.Title == "" || params.Content == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Title and content are required")
		return
	}
	if params.Status != "" && params.Status != types.PostStatusDraft && params.Status != types.PostStatusPublished {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Status must be DRAFT or PUBLISHED")
		return
	}

	var uploads []Upload
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				l.ErrorContext(ctx, "Failed to open uploaded file",
					slog.String("filename", fh.Filename), slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusBadRequest, "Could not read uploaded file")
				return
			}
			defer f.Close()
			uploads = append(uploads, Upload{Filename: fh.Filename, Size: fh.Size, Content: f})
		}
	}

	start := time.Now()
	created, err := h.postService.Create(ctx, identity, params, uploads)
	if err != nil {
		if errors.Is(err, types.ErrStorage) {
			l.ErrorContext(ctx, "Post creation failed on file storage", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to store uploaded file")
			return
		}
		l.ErrorContext(ctx, "Post creation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create post")
		return
	}
	metrics.Get().UploadedFilesTotal.Add(ctx, int64(len(created.Images)))

	l.InfoContext(ctx, "Post created",
		slog.Int64("postID", created.ID),
		slog.Int("images", len(created.Images)),
		slog.Duration("duration", time.Since(start)))
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid post ID")
		return
	}
	p, err := h.postService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Post not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to fetch post", slog.Int64("postID", id), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	posts, err := h.postService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list posts", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list posts")
		return
	}
	if posts == nil {
		posts = []types.Post{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, posts)
}

// Update godoc
// @Summary      Update a post
// @Description  Partially updates a post owned by the caller (or any post for admins)
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id    path  int                     true  "Post ID"
// @Param        post  body  types.UpdatePostParams  true  "Fields to update"
// @Success      200  {object}  types.Post
// @Failure      403  {object}  api.Response
// @Failure      404  {object}  api.Response
// @Security     BearerAuth
// @Router       /posts/{id} [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Update"))
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid post ID")
		return
	}
	var params types.UpdatePostParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if params.Status != nil && *params.Status != types.PostStatusDraft && *params.Status != types.PostStatusPublished {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Status must be DRAFT or PUBLISHED")
		return
	}

	updated, err := h.postService.Update(ctx, identity, id, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Post not found")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You cannot modify this post")
		default:
			l.ErrorContext(ctx, "Failed to update post", slog.Int64("postID", id), slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update post")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// Delete godoc
// @Summary      Delete a post
// @Description  Deletes a post owned by the caller (or any post for admins)
// @Tags         posts
// @Produce      json
// @Param        id  path  int  true  "Post ID"
// @Success      200  {object}  api.Response
// @Failure      403  {object}  api.Response
// @Failure      404  {object}  api.Response
// @Security     BearerAuth
// @Router       /posts/{id} [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Delete"))
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid post ID")
		return
	}

	if err := h.postService.Delete(ctx, identity, id); err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Post not found")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You cannot delete this post")
		default:
			l.ErrorContext(ctx, "Failed to delete post", slog.Int64("postID", id), slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete post")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Post deleted"})
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
