package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearauth/token-service/application/port/inbound"
	"github.com/clearauth/token-service/infrastructure/http/response"
)

// TokenHandler exposes the single grant endpoint. It decodes the
// discriminated request body, routes on grantType, and keeps the error
// surface flat: business failures are always a bare 401, and only a
// structurally unreadable body yields a 500. Existing clients depend on
// that status mapping.
type TokenHandler struct {
	tokenUseCase inbound.TokenUseCase
}

func NewTokenHandler(tokenUseCase inbound.TokenUseCase) *TokenHandler {
	return &TokenHandler{
		tokenUseCase: tokenUseCase,
	}
}

type grantRequest struct {
	GrantType    string `json:"grantType"`
	ClientID     string `json:"clientId"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	RefreshToken string `json:"refreshToken"`
}

func (h *TokenHandler) Auth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.MethodNotAllowed(w)
		return
	}

	var req *grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		response.InternalServerError(w, "Invalid request body")
		return
	}

	var (
		res *inbound.TokenResponse
		err error
	)

	switch req.GrantType {
	case inbound.GrantTypePassword:
		res, err = h.tokenUseCase.IssueByPassword(r.Context(), inbound.PasswordGrantRequest{
			ClientID: req.ClientID,
			Username: req.Username,
			Password: req.Password,
		})
	case inbound.GrantTypeRefreshToken:
		res, err = h.tokenUseCase.Rotate(r.Context(), inbound.RefreshGrantRequest{
			ClientID:     req.ClientID,
			RefreshToken: req.RefreshToken,
		})
	default:
		response.Unauthorized(w, "Unsupported grant type")
		return
	}

	if err != nil {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	response.JSON(w, http.StatusOK, res)
}
