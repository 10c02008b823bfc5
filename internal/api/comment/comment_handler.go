package comment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openblog/openblog-api/internal/api"
	"github.com/openblog/openblog-api/internal/api/auth"
	"github.com/openblog/openblog-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Create(w http.ResponseWriter, r *http.Request)
	ListByPost(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	commentService Service
	logger         *slog.Logger
}

func NewHandlerImpl(commentService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		commentService: commentService,
		logger:         logger,
	}
}

// Create godoc
// @Summary      Create a comment
// @Description  Adds a comment (or a reply when parent_id is set) to a post
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        comment  body  types.CreateCommentParams  true  "Comment to create"
// @Success      201  {object}  types.Comment
// @Failure      400  {object}  api.Response
// @Failure      401  {object}  api.Response
// @Failure      404  {object}  api.Response
// @Security     BearerAuth
// @Router       /comments/create [post]
func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Create"))
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	var params types.CreateCommentParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if params.PostID == 0 || params.Content == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Post ID and content are required")
		return
	}

	created, err := h.commentService.Create(ctx, identity, params)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Post or parent comment not found")
			return
		}
		l.ErrorContext(ctx, "Failed to create comment", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create comment")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

func (h *HandlerImpl) ListByPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	postID, err := parseID(r, "postId")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid post ID")
		return
	}
	comments, err := h.commentService.ListByPost(ctx, postID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Post not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to list comments", slog.Int64("postID", postID), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list comments")
		return
	}
	if comments == nil {
		comments = []types.Comment{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, comments)
}

func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid comment ID")
		return
	}
	c, err := h.commentService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Comment not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to fetch comment", slog.Int64("commentID", id), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch comment")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// Delete godoc
// @Summary      Delete a comment
// @Description  Deletes a comment authored by the caller (or any comment for admins)
// @Tags         comments
// @Produce      json
// @Param        id  path  int  true  "Comment ID"
// @Success      200  {object}  api.Response
// @Failure      403  {object}  api.Response
// @Failure      404  {object}  api.Response
// @Security     BearerAuth
// @Router       /comments/delete/{id} [delete]
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
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	if err := h.commentService.Delete(ctx, identity, id); err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Comment not found")
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You cannot delete this comment")
		default:
			l.ErrorContext(ctx, "Failed to delete comment", slog.Int64("commentID", id), slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete comment")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Comment deleted"})
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
