package types

import "time"

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           int64     `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserParams is the registration payload. Role is always fixed to
// RoleUser server-side; elevation is not exposed through registration.
type CreateUserParams struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// UpdateUserParams carries partial updates; nil fields are left untouched.
type UpdateUserParams struct {
	Username    *string   `json:"username,omitempty"`
	Email       *string   `json:"email,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	Password    *string   `json:"password,omitempty"`
	Role        *UserRole `json:"role,omitempty"`
}

// Identity is the resolved caller of a request, derived from a validated
// bearer token. It lives only in the request context, never in storage.
type Identity struct {
	UserID int64
	Email  string
	Role   UserRole
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
