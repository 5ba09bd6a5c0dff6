package models

import "fmt"

// CredentialKind distinguishes anonymous guest sessions from authenticated users.
type CredentialKind int

const (
	Guest CredentialKind = iota
	User
)

func (k CredentialKind) String() string {
	switch k {
	case Guest:
		return "guest"
	case User:
		return "user"
	default:
		return fmt.Sprintf("CredentialKind(%d)", int(k))
	}
}

// Credential is the token attached to outgoing requests.
type Credential struct {
	Kind  CredentialKind
	Token string
}

// UserProfile is the account summary returned at login.
// It exists only while a [User] credential is active.
type UserProfile struct {
	UserID    int64   `json:"userId"`
	Username  string  `json:"userName"`
	Balance   float64 `json:"balance"`
	AvatarURL string  `json:"avatar,omitempty"`
}
