package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearauth/token-service/application/port/inbound"
	"github.com/clearauth/token-service/application/port/outbound"
	"github.com/clearauth/token-service/domain/apperror"
	"github.com/clearauth/token-service/domain/entity"
	"github.com/clearauth/token-service/infrastructure/service/logger"
)

// TokenUseCase orchestrates the password and refresh grant flows. Every
// failure mode, including store and directory outages, is collapsed to
// apperror.ErrAuthenticationFailed so that callers cannot distinguish a
// wrong password from an unknown account or a transient infra fault. The
// real cause is logged before the error is swallowed.
type TokenUseCase struct {
	userDirectory   outbound.UserDirectory
	refreshTokens   outbound.RefreshTokenRepository
	signer          outbound.TokenSigner
	passwordService inbound.PasswordService
	logger          logger.Logger
}

func NewTokenUseCase(
	userDirectory outbound.UserDirectory,
	refreshTokens outbound.RefreshTokenRepository,
	signer outbound.TokenSigner,
	passwordService inbound.PasswordService,
	log logger.Logger,
) inbound.TokenUseCase {
	return &TokenUseCase{
		userDirectory:   userDirectory,
		refreshTokens:   refreshTokens,
		signer:          signer,
		passwordService: passwordService,
		logger:          log,
	}
}

func (uc *TokenUseCase) IssueByPassword(ctx context.Context, req inbound.PasswordGrantRequest) (*inbound.TokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		logger.LogAuthEvent(ctx, uc.logger, "password_grant_missing_credentials", "", req.ClientID, false, nil)
		return nil, apperror.ErrAuthenticationFailed
	}

	user, err := uc.resolveUser(ctx, req.Username)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogAuthEvent(ctx, uc.logger, "password_grant_user_not_found", "", req.ClientID, false, map[string]interface{}{
				"username": req.Username,
			})
		} else {
			uc.logger.Error(ctx, "User directory lookup failed", err, map[string]interface{}{
				"username": req.Username,
			})
		}
		return nil, apperror.ErrAuthenticationFailed
	}

	valid, err := uc.passwordService.VerifyPassword(req.Password, user.Password)
	if err != nil {
		uc.logger.Error(ctx, "Password verification error", err, map[string]interface{}{
			"subject_id": user.ID,
		})
		return nil, apperror.ErrAuthenticationFailed
	}
	if !valid {
		logger.LogAuthEvent(ctx, uc.logger, "password_grant_invalid_password", user.ID, req.ClientID, false, nil)
		return nil, apperror.ErrAuthenticationFailed
	}

	response, err := uc.issueTokens(ctx, req.ClientID, user.ID)
	if err != nil {
		return nil, apperror.ErrAuthenticationFailed
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_grant_successful", user.ID, req.ClientID, true, nil)
	return response, nil
}

func (uc *TokenUseCase) Rotate(ctx context.Context, req inbound.RefreshGrantRequest) (*inbound.TokenResponse, error) {
	if req.ClientID == "" || req.RefreshToken == "" {
		logger.LogAuthEvent(ctx, uc.logger, "refresh_grant_missing_fields", "", req.ClientID, false, nil)
		return nil, apperror.ErrAuthenticationFailed
	}

	row, err := uc.refreshTokens.FindByClientAndValue(ctx, req.ClientID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
			// A consumed value and a value that never existed must look
			// identical to the caller.
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_token_not_found", "MEDIUM", map[string]interface{}{
				"client_id": req.ClientID,
			})
		} else {
			uc.logger.Error(ctx, "Refresh token lookup failed", err, map[string]interface{}{
				"client_id": req.ClientID,
			})
		}
		return nil, apperror.ErrAuthenticationFailed
	}

	user, err := uc.userDirectory.FindByID(ctx, row.SubjectID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_subject_no_longer_exists", "HIGH", map[string]interface{}{
				"subject_id": row.SubjectID,
			})
		} else {
			uc.logger.Error(ctx, "User directory lookup failed", err, map[string]interface{}{
				"subject_id": row.SubjectID,
			})
		}
		return nil, apperror.ErrAuthenticationFailed
	}

	value, err := uc.signer.GenerateRefreshValue()
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate refresh token value", err, nil)
		return nil, apperror.ErrAuthenticationFailed
	}

	next := entity.NewRefreshToken(uuid.New().String(), row.ClientID, row.SubjectID, value)

	// Atomic swap: the old row is deleted and the new one inserted in a
	// single step. If another rotation consumed the row first, Replace
	// reports not-found and this caller loses.
	if err := uc.refreshTokens.Replace(ctx, row.ClientID, row.Value, next); err != nil {
		if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_rotation_conflict", "HIGH", map[string]interface{}{
				"subject_id": row.SubjectID,
				"client_id":  row.ClientID,
			})
		} else {
			wrapped := apperror.New(apperror.ErrCodeDatabaseError, "failed to rotate refresh token", err)
			uc.logger.Error(ctx, "Failed to rotate refresh token", wrapped, map[string]interface{}{
				"subject_id": row.SubjectID,
			})
		}
		return nil, apperror.ErrAuthenticationFailed
	}

	signed, err := uc.signer.Mint(user.ID, time.Now().UTC())
	if err != nil {
		uc.logger.Error(ctx, "Failed to mint access token", err, map[string]interface{}{
			"subject_id": user.ID,
		})
		return nil, apperror.ErrAuthenticationFailed
	}

	logger.LogAuthEvent(ctx, uc.logger, "refresh_grant_successful", user.ID, req.ClientID, true, nil)

	return &inbound.TokenResponse{
		AccessToken:      signed.Token,
		ExpiresInSeconds: signed.ExpiresIn,
		RefreshToken:     next.Value,
	}, nil
}

// resolveUser looks up by exact username first and falls back to an email
// lookup when the identifier contains "@".
func (uc *TokenUseCase) resolveUser(ctx context.Context, usernameOrEmail string) (*entity.User, error) {
	user, err := uc.userDirectory.FindByUsername(ctx, usernameOrEmail)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, outbound.ErrUserNotFound) && strings.Contains(usernameOrEmail, "@") {
		return uc.userDirectory.FindByEmail(ctx, usernameOrEmail)
	}
	return nil, err
}

func (uc *TokenUseCase) issueTokens(ctx context.Context, clientID, subjectID string) (*inbound.TokenResponse, error) {
	value, err := uc.signer.GenerateRefreshValue()
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate refresh token value", err, nil)
		return nil, err
	}

	token := entity.NewRefreshToken(uuid.New().String(), clientID, subjectID, value)
	if err := uc.refreshTokens.Create(ctx, token); err != nil {
		wrapped := apperror.New(apperror.ErrCodeTokenCreationFailed, "failed to persist refresh token", err)
		uc.logger.Error(ctx, "Failed to persist refresh token", wrapped, map[string]interface{}{
			"subject_id": subjectID,
		})
		return nil, wrapped
	}

	signed, err := uc.signer.Mint(subjectID, time.Now().UTC())
	if err != nil {
		uc.logger.Error(ctx, "Failed to mint access token", err, map[string]interface{}{
			"subject_id": subjectID,
		})
		return nil, err
	}

	return &inbound.TokenResponse{
		AccessToken:      signed.Token,
		ExpiresInSeconds: signed.ExpiresIn,
		RefreshToken:     token.Value,
	}, nil
}
