package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/openblog/openblog-api/internal/api"
	"github.com/openblog/openblog-api/internal/types"
)

var _ Repository = (*PostgresUserRepo)(nil)

type Repository interface {
	// Create inserts a new user. Returns types.ErrConflict when the
	// username or email is already taken.
	Create(ctx context.Context, params types.CreateUserParams, passwordHash string, role types.UserRole) (*types.User, error)
	GetByID(ctx context.Context, id int64) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	List(ctx context.Context) ([]types.User, error)
	// Update applies the non-nil fields. passwordHash, when non-nil,
	// replaces the stored hash.
	Update(ctx context.Context, id int64, params types.UpdateUserParams, passwordHash *string) (*types.User, error)
	Delete(ctx context.Context, id int64) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool api.DBPool
}

func NewPostgresUserRepo(pgpool api.DBPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = "user_id, username, email, password_hash, display_name, role, created_at"

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, params types.CreateUserParams, passwordHash string, role types.UserRole) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.String("username", params.Username))

	user := &types.User{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: passwordHash,
		DisplayName:  params.DisplayName,
		Role:         role,
		CreatedAt:    time.Now(),
	}

	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, display_name, role, created_at)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING user_id`,
		user.Username, user.Email, user.PasswordHash, user.DisplayName, user.Role, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if conflictErr := uniqueViolation(err); conflictErr != nil {
			l.WarnContext(ctx, "Duplicate user", slog.Any("error", err))
			span.SetStatus(codes.Error, "duplicate user")
			return nil, conflictErr
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", id),
	))
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "user not found")
			return nil, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "user not found")
			return nil, fmt.Errorf("user with email %q: %w", email, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY user_id")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, id int64, params types.UpdateUserParams, passwordHash *string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", id),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Update"), slog.Int64("userID", id))

	// Build query dynamically
	var setClauses []string
	var args []interface{}
	argID := 1

	if params.Username != nil {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", argID))
		args = append(args, *params.Username)
		argID++
	}
	if params.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, *params.Email)
		argID++
	}
	if params.DisplayName != nil {
		setClauses = append(setClauses, fmt.Sprintf("display_name = $%d", argID))
		args = append(args, *params.DisplayName)
		argID++
	}
	if params.Role != nil {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", argID))
		args = append(args, *params.Role)
		argID++
	}
	if passwordHash != nil {
		setClauses = append(setClauses, fmt.Sprintf("password_hash = $%d", argID))
		args = append(args, *passwordHash)
		argID++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	query := fmt.Sprintf("UPDATE users SET %s WHERE user_id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argID, userColumns)
	args = append(args, id)

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "user not found")
			return nil, fmt.Errorf("user %d: %w", id, types.ErrNotFound)
		}
		if conflictErr := uniqueViolation(err); conflictErr != nil {
			l.WarnContext(ctx, "Duplicate user on update", slog.Any("error", err))
			span.SetStatus(codes.Error, "duplicate user")
			return nil, conflictErr
		}
		l.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) Delete(ctx context.Context, id int64) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", id),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, "DELETE FROM users WHERE user_id = $1", id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "user not found")
		return fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// uniqueViolation maps a Postgres unique-constraint error to the domain
// conflict error, naming the colliding field.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return fmt.Errorf("username already exists: %w", types.ErrConflict)
	case strings.Contains(pgErr.ConstraintName, "email"):
		return fmt.Errorf("email already exists: %w", types.ErrConflict)
	default:
		return fmt.Errorf("unique constraint %q violated: %w", pgErr.ConstraintName, types.ErrConflict)
	}
}
