package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/openblog/openblog-api/internal/api/auth"
	"github.com/openblog/openblog-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// Register creates a new USER-role account. Duplicate username or
	// email fails with types.ErrConflict.
	Register(ctx context.Context, params types.CreateUserParams) (*types.User, error)

	// Login verifies credentials and issues a bearer token. An unknown
	// email and a wrong password both fail with the same
	// types.ErrUnauthenticated, deliberately uninformative about which.
	Login(ctx context.Context, email, password string) (string, *types.User, error)

	Get(ctx context.Context, id int64) (*types.User, error)
	List(ctx context.Context) ([]types.User, error)

	// Update requires the caller to be the user themselves or an admin;
	// changing the role additionally requires admin.
	Update(ctx context.Context, identity types.Identity, id int64, params types.UpdateUserParams) (*types.User, error)

	// Delete requires the caller to be the user themselves or an admin.
	Delete(ctx context.Context, identity types.Identity, id int64) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	tokens *auth.TokenService
}

func NewServiceImpl(repo Repository, tokens *auth.TokenService, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		tokens: tokens,
	}
}

func (s *ServiceImpl) Register(ctx context.Context, params types.CreateUserParams) (*types.User, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", params.Username))

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Role is fixed at registration; elevation is a separate admin action.
	user, err := s.repo.Create(ctx, params, string(hashed), types.RoleUser)
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "User registered", slog.Int64("userID", user.ID))
	return user, nil
}

func (s *ServiceImpl) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	l := s.logger.With(slog.String("method", "Login"))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Login attempt for unknown email")
			return "", nil, fmt.Errorf("invalid email or password: %w", types.ErrUnauthenticated)
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.WarnContext(ctx, "Login attempt with wrong password", slog.Int64("userID", user.ID))
		return "", nil, fmt.Errorf("invalid email or password: %w", types.ErrUnauthenticated)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	l.InfoContext(ctx, "User logged in", slog.Int64("userID", user.ID))
	return token, user, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id int64) (*types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *ServiceImpl) Update(ctx context.Context, identity types.Identity, id int64, params types.UpdateUserParams) (*types.User, error) {
	l := s.logger.With(slog.String("method", "Update"), slog.Int64("userID", id))

	if !auth.CanMutate(identity, id) {
		l.WarnContext(ctx, "Update denied", slog.Int64("callerID", identity.UserID))
		return nil, fmt.Errorf("cannot update user %d: %w", id, types.ErrForbidden)
	}
	if params.Role != nil && !identity.IsAdmin() {
		l.WarnContext(ctx, "Role change denied", slog.Int64("callerID", identity.UserID))
		return nil, fmt.Errorf("only admins may change roles: %w", types.ErrForbidden)
	}

	var passwordHash *string
	if params.Password != nil && *params.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hashed)
		passwordHash = &h
	}

	return s.repo.Update(ctx, id, params, passwordHash)
}

func (s *ServiceImpl) Delete(ctx context.Context, identity types.Identity, id int64) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.Int64("userID", id))

	if !auth.CanMutate(identity, id) {
		l.WarnContext(ctx, "Delete denied", slog.Int64("callerID", identity.UserID))
		return fmt.Errorf("cannot delete user %d: %w", id, types.ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}
