package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openblog/openblog-api/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresUserRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresUserRepo(mockPool, slog.Default()), mockPool
}

func TestPostgresUserRepo_Create_Conflict(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", "", types.RoleUser, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), types.CreateUserParams{
		Username: "alice",
		Email:    "alice@example.com",
	}, "hash", types.RoleUser)

	assert.ErrorIs(t, err, types.ErrConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresUserRepo_Create_AssignsID(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", "Alice", types.RoleUser, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(7)))

	user, err := repo.Create(context.Background(), types.CreateUserParams{
		Username:    "alice",
		Email:       "alice@example.com",
		DisplayName: "Alice",
	}, "hash", types.RoleUser)

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, types.RoleUser, user.Role)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresUserRepo_GetByEmail_NotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ghost@example.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"user_id", "username", "email", "password_hash", "display_name", "role", "created_at",
		}))

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresUserRepo_GetByEmail(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	created := time.Now()

	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"user_id", "username", "email", "password_hash", "display_name", "role", "created_at",
		}).AddRow(int64(1), "alice", "alice@example.com", "hash", "Alice", types.RoleAdmin, created))

	user, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, types.RoleAdmin, user.Role)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresUserRepo_Update_NoFieldsFallsBackToGet(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	created := time.Now()

	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE user_id").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{
			"user_id", "username", "email", "password_hash", "display_name", "role", "created_at",
		}).AddRow(int64(1), "alice", "alice@example.com", "hash", "Alice", types.RoleUser, created))

	user, err := repo.Update(context.Background(), 1, types.UpdateUserParams{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresUserRepo_Delete_NotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec("DELETE FROM users").
		WithArgs(int64(99)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
