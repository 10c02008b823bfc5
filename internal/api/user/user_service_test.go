package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openblog/openblog-api/config"
	"github.com/openblog/openblog-api/internal/api/auth"
	"github.com/openblog/openblog-api/internal/types"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, params types.CreateUserParams, passwordHash string, role types.UserRole) (*types.User, error) {
	args := m.Called(ctx, params, passwordHash, role)
	user, _ := args.Get(0).(*types.User)
	return user, args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*types.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*types.User)
	return user, args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*types.User)
	return user, args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context) ([]types.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]types.User)
	return users, args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, id int64, params types.UpdateUserParams, passwordHash *string) (*types.User, error) {
	args := m.Called(ctx, id, params, passwordHash)
	user, _ := args.Get(0).(*types.User)
	return user, args.Error(1)
}

func (m *MockUserRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(repo Repository) *ServiceImpl {
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret-key"
	cfg.JWT.TokenTTL = time.Hour
	cfg.JWT.Issuer = "openblog-api"
	return NewServiceImpl(repo, auth.NewTokenService(cfg), slog.Default())
}

func TestServiceImpl_Register(t *testing.T) {
	ctx := context.Background()
	params := types.CreateUserParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret",
	}

	t.Run("hashes password and fixes role to USER", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("Create", mock.Anything, params, mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")) == nil
		}), types.RoleUser).Return(&types.User{ID: 1, Username: "alice", Role: types.RoleUser}, nil)

		svc := newTestService(repo)
		user, err := svc.Register(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, types.RoleUser, user.Role)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate surfaces conflict", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("Create", mock.Anything, params, mock.Anything, types.RoleUser).
			Return(nil, types.ErrConflict)

		svc := newTestService(repo)
		_, err := svc.Register(ctx, params)
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestServiceImpl_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &types.User{
		ID:           1,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         types.RoleUser,
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)

		svc := newTestService(repo)
		token, user, err := svc.Login(ctx, "alice@example.com", "s3cret")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("unknown email fails with unauthenticated", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, types.ErrNotFound)

		svc := newTestService(repo)
		_, _, err := svc.Login(ctx, "nobody@example.com", "s3cret")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		assert.NotErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("wrong password fails with the same unauthenticated error", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)

		svc := newTestService(repo)
		_, _, err := svc.Login(ctx, "alice@example.com", "wrong")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestServiceImpl_Update(t *testing.T) {
	ctx := context.Background()
	newName := "Alice B."

	t.Run("self update allowed", func(t *testing.T) {
		repo := new(MockUserRepo)
		params := types.UpdateUserParams{DisplayName: &newName}
		repo.On("Update", mock.Anything, int64(1), params, (*string)(nil)).
			Return(&types.User{ID: 1, DisplayName: newName}, nil)

		svc := newTestService(repo)
		identity := types.Identity{UserID: 1, Role: types.RoleUser}
		user, err := svc.Update(ctx, identity, 1, params)
		require.NoError(t, err)
		assert.Equal(t, newName, user.DisplayName)
	})

	t.Run("updating another user is forbidden", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newTestService(repo)
		identity := types.Identity{UserID: 2, Role: types.RoleUser}
		_, err := svc.Update(ctx, identity, 1, types.UpdateUserParams{DisplayName: &newName})
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "Update")
	})

	t.Run("admin may update any user", func(t *testing.T) {
		repo := new(MockUserRepo)
		params := types.UpdateUserParams{DisplayName: &newName}
		repo.On("Update", mock.Anything, int64(1), params, (*string)(nil)).
			Return(&types.User{ID: 1, DisplayName: newName}, nil)

		svc := newTestService(repo)
		identity := types.Identity{UserID: 9, Role: types.RoleAdmin}
		_, err := svc.Update(ctx, identity, 1, params)
		assert.NoError(t, err)
	})

	t.Run("role change requires admin", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newTestService(repo)
		admin := types.RoleAdmin
		identity := types.Identity{UserID: 1, Role: types.RoleUser}
		_, err := svc.Update(ctx, identity, 1, types.UpdateUserParams{Role: &admin})
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "Update")
	})

	t.Run("new password is re-hashed", func(t *testing.T) {
		repo := new(MockUserRepo)
		newPassword := "n3w-pass"
		params := types.UpdateUserParams{Password: &newPassword}
		repo.On("Update", mock.Anything, int64(1), params, mock.MatchedBy(func(hash *string) bool {
			return hash != nil && bcrypt.CompareHashAndPassword([]byte(*hash), []byte("n3w-pass")) == nil
		})).Return(&types.User{ID: 1}, nil)

		svc := newTestService(repo)
		identity := types.Identity{UserID: 1, Role: types.RoleUser}
		_, err := svc.Update(ctx, identity, 1, params)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestServiceImpl_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("self delete allowed", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("Delete", mock.Anything, int64(1)).Return(nil)

		svc := newTestService(repo)
		identity := types.Identity{UserID: 1, Role: types.RoleUser}
		assert.NoError(t, svc.Delete(ctx, identity, 1))
	})

	t.Run("deleting another user is forbidden", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := newTestService(repo)
		identity := types.Identity{UserID: 2, Role: types.RoleUser}
		err := svc.Delete(ctx, identity, 1)
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "Delete")
	})
}
