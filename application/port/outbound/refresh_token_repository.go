package outbound

import (
	"context"
	"errors"

	"github.com/clearauth/token-service/domain/entity"
)

var (
	ErrRefreshTokenNotFound      = errors.New("refresh token not found")
	ErrRefreshTokenAlreadyExists = errors.New("refresh token already exists")
)

// RefreshTokenRepository is the durable store for refresh-token rows.
//
// Replace is the rotation primitive: it removes the row identified by
// (clientID, oldValue) and inserts next in a single atomic step. It must
// return ErrRefreshTokenNotFound when the old row no longer exists, so
// that of two concurrent rotations of the same value exactly one wins.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error
	FindByClientAndValue(ctx context.Context, clientID, value string) (*entity.RefreshToken, error)
	Replace(ctx context.Context, clientID, oldValue string, next *entity.RefreshToken) error
}
