package outbound

import (
	"time"
)

// SignedToken is a minted access token plus its lifetime in seconds.
type SignedToken struct {
	Token     string
	ExpiresIn int
}

// TokenSigner mints short-lived signed access tokens. Minting cannot fail
// under correct configuration; a bad signing key is a construction-time
// error, not a per-request one.
type TokenSigner interface {
	Mint(subjectID string, now time.Time) (SignedToken, error)
	GenerateRefreshValue() (string, error)
}
