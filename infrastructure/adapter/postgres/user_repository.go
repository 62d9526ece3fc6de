package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arw/arw-api/application/port/outbound"
	"github.com/arw/arw-api/domain/entity"
)

const userColumns = `id, email, name, display_picture, created_at, updated_at`

type UserRepositoryAdapter struct {
	db *sql.DB
}

var _ outbound.UserRepository = (*UserRepositoryAdapter)(nil)

func NewUserRepositoryAdapter(db *sql.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{
		db: db,
	}
}

func (r *UserRepositoryAdapter) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if email == "" {
		return nil, outbound.ErrUserNotFound
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`
	return r.findOne(ctx, "find user by email", query, email)
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, outbound.ErrUserNotFound
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return r.findOne(ctx, "find user by id", query, id)
}

func (r *UserRepositoryAdapter) findOne(ctx context.Context, operation, query string, arg interface{}) (*entity.User, error) {
	var user entity.User
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.DisplayPicture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, outbound.ErrUserNotFound
	}
	if err != nil {
		return nil, storeError(operation, err)
	}
	return &user, nil
}

// Create inserts user, or on an email collision refreshes the existing row's
// profile and adopts its id.
func (r *UserRepositoryAdapter) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.ID == "" || user.Email == "" {
		return fmt.Errorf("user ID and email are required")
	}

	query := `
		INSERT INTO users (id, email, name, display_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, display_picture = EXCLUDED.display_picture, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.DisplayPicture,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return storeError("create user", err)
	}
	return nil
}

func (r *UserRepositoryAdapter) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users
		SET name = $1, display_picture = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		user.Name,
		user.DisplayPicture,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return storeError("update user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeError("update user", err)
	}
	if rowsAffected == 0 {
		return outbound.ErrUserNotFound
	}
	return nil
}
