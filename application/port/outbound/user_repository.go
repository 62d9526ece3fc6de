package outbound

import (
	"context"
	"errors"

	"github.com/arw/arw-api/domain/entity"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Create inserts the user. On an email collision the existing row's profile
	// is updated and its id and creation time are copied back into user.
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
}
