package inbound

import (
	"context"
)

// GrantTypePassword and GrantTypeRefreshToken are the only supported
// grant discriminators; anything else is rejected before the use case.
const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refreshToken"
)

type PasswordGrantRequest struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshGrantRequest struct {
	ClientID     string `json:"clientId"`
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
	RefreshToken     string `json:"refreshToken"`
}

// TokenUseCase owns the two credential-exchange flows. Both return
// apperror.ErrAuthenticationFailed for every failure mode.
type TokenUseCase interface {
	IssueByPassword(ctx context.Context, req PasswordGrantRequest) (*TokenResponse, error)
	Rotate(ctx context.Context, req RefreshGrantRequest) (*TokenResponse, error)
}
