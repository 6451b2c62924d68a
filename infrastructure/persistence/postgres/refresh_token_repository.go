package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clearauth/token-service/application/port/outbound"
	"github.com/clearauth/token-service/domain/entity"
)

type refreshTokenRepository struct {
	db *sql.DB
}

func NewRefreshTokenRepository(db *sql.DB) outbound.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, client_id, subject_id, value, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.ClientID,
		token.SubjectID,
		token.Value,
		int(token.Type),
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) FindByClientAndValue(ctx context.Context, clientID, value string) (*entity.RefreshToken, error) {
	query := `
		SELECT id, client_id, subject_id, value, type, created_at
		FROM refresh_tokens
		WHERE client_id = $1 AND value = $2
	`

	var token entity.RefreshToken
	var tokenType int

	err := r.db.QueryRowContext(ctx, query, clientID, value).Scan(
		&token.ID,
		&token.ClientID,
		&token.SubjectID,
		&token.Value,
		&tokenType,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	token.Type = entity.TokenType(tokenType)
	return &token, nil
}

// Replace deletes the row keyed by (clientID, oldValue) and inserts next
// inside one transaction. The DELETE takes a row lock, so of two
// concurrent rotations of the same value one commits and the other sees
// zero affected rows and gets ErrRefreshTokenNotFound. The old value is
// never valid after commit.
func (r *refreshTokenRepository) Replace(ctx context.Context, clientID, oldValue string, next *entity.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE client_id = $1 AND value = $2`,
		clientID, oldValue,
	)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return outbound.ErrRefreshTokenNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, client_id, subject_id, value, type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		next.ID,
		next.ClientID,
		next.SubjectID,
		next.Value,
		int(next.Type),
		next.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert replacement token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}

	return nil
}
