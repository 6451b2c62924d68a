package outbound

import (
	"context"
	"errors"

	"github.com/clearauth/token-service/domain/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserDirectory resolves principals. Password verification happens against
// the bcrypt hash carried on the returned entity; the directory itself
// never sees a plaintext password.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) error
}
