package memory

import (
	"context"
	"sync"

	"github.com/clearauth/token-service/application/port/outbound"
	"github.com/clearauth/token-service/domain/entity"
)

// RefreshTokenRepository is a mutex-guarded map keyed by (clientID, value).
// It provides the same compare-and-delete rotation guarantee as the
// postgres implementation and backs unit and concurrency tests.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[tokenKey]*entity.RefreshToken
}

type tokenKey struct {
	clientID string
	value    string
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{
		tokens: make(map[tokenKey]*entity.RefreshToken),
	}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenKey{clientID: token.ClientID, value: token.Value}
	if _, exists := r.tokens[key]; exists {
		return outbound.ErrRefreshTokenAlreadyExists
	}

	copied := *token
	r.tokens[key] = &copied
	return nil
}

func (r *RefreshTokenRepository) FindByClientAndValue(ctx context.Context, clientID, value string) (*entity.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.tokens[tokenKey{clientID: clientID, value: value}]
	if !exists {
		return nil, outbound.ErrRefreshTokenNotFound
	}

	copied := *token
	return &copied, nil
}

func (r *RefreshTokenRepository) Replace(ctx context.Context, clientID, oldValue string, next *entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldKey := tokenKey{clientID: clientID, value: oldValue}
	if _, exists := r.tokens[oldKey]; !exists {
		return outbound.ErrRefreshTokenNotFound
	}

	delete(r.tokens, oldKey)

	copied := *next
	r.tokens[tokenKey{clientID: next.ClientID, value: next.Value}] = &copied
	return nil
}

// Len reports the number of live rows; used by tests to assert that
// failed flows leave no state behind.
func (r *RefreshTokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
