// Package models holds the server-side persistence types.
package models

import (
	"encoding/json"
	"time"
)

// User is an account row. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
}

// RefreshToken is a stored long-lived token. Tokens are rotated on use.
type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}

// Document is one stored record copy, owned by a user and grouped into a
// named collection. Data is the client payload, stored opaque.
//
// LocalID is the client's row back-reference used for idempotent creates.
// UpdatedAt is the client's wall-clock stamp in unix milliseconds and
// drives conflict resolution; ServerUpdatedAt is stamped here on every
// write and is informational.
type Document struct {
	ID              string          `json:"id"`
	UserID          string          `json:"-"`
	Collection      string          `json:"collection"`
	LocalID         int64           `json:"localId,omitempty"`
	Data            json.RawMessage `json:"data"`
	UpdatedAt       int64           `json:"updatedAt"`
	ServerUpdatedAt int64           `json:"serverUpdatedAt,omitempty"`
}
