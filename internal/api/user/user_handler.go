package user

import (
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

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService Service
	logger      *slog.Logger
}

func NewHandlerImpl(userService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register User
// @Description  Creates a new account with role USER.
// @Tags         User
// @Accept       json
// @Produce      json
// @Router       /api/users/create [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))
	start := time.Now()
	m := metrics.Get()
	defer func() {
		m.RegisterRequestsTotal.Add(ctx, 1)
		m.RegisterDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	var params types.CreateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if params.Username == "" || params.Email == "" || params.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.userService.Register(ctx, params)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to register user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, user)
}

// Login godoc
// @Summary      Login
// @Description  Verifies credentials and returns a bearer token plus a profile snapshot.
// @Tags         User
// @Accept       json
// @Produce      json
// @Router       /api/users/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))
	m := metrics.Get()
	m.LoginRequestsTotal.Add(ctx, 1)

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := h.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			m.LoginFailuresTotal.Add(ctx, 1)
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		Token:       token,
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	})
}

func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "List"))

	users, err := h.userService.List(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []types.User{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

func (h *HandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Get"))

	id, err := parseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := h.userService.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to get user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// Update godoc
// @Summary      Update User
// @Description  Updates a user. The caller must be the user themselves or an admin.
// @Tags         User
// @Security     BearerAuth
// @Router       /api/users/update/{id} [put]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Update"))

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user id")
		return
	}

	var params types.UpdateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Update(ctx, identity, id, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You cannot update this user")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, err.Error())
		default:
			l.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update user")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// Delete godoc
// @Summary      Delete User
// @Description  Deletes a user. The caller must be the user themselves or an admin.
// @Tags         User
// @Security     BearerAuth
// @Router       /api/users/delete/{id} [delete]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Delete"))

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.userService.Delete(ctx, identity, id); err != nil {
		switch {
		case errors.Is(err, types.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You cannot delete this user")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete user")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "User deleted"})
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
