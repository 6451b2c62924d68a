package entity

import (
	"time"
)

// TokenType discriminates refresh-token variants. Only the standard
// single-use kind exists today.
type TokenType int

const (
	TokenTypeStandard TokenType = 0
)

// RefreshToken is one durable row in the token store. A row is valid from
// the moment it is created until it is exchanged for a replacement; it is
// never updated in place.
type RefreshToken struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	SubjectID string    `json:"subject_id"`
	Value     string    `json:"value"`
	Type      TokenType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRefreshToken(id, clientID, subjectID, value string) *RefreshToken {
	return &RefreshToken{
		ID:        id,
		ClientID:  clientID,
		SubjectID: subjectID,
		Value:     value,
		Type:      TokenTypeStandard,
		CreatedAt: time.Now().UTC(),
	}
}
