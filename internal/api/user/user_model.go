package user

import "github.com/openblog/openblog-api/internal/types"

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and a denormalized snapshot
// of the public profile fields.
type LoginResponse struct {
	Token       string         `json:"token"`
	UserID      int64          `json:"user_id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	Role        types.UserRole `json:"role"`
}
