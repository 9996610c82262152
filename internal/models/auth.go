package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Institute string   `json:"institute,omitempty"`
	jwt.RegisteredClaims
}

// User converts the claims into the authenticated user.
func (c *JWTClaims) User() User {
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	return User{ID: c.UserID, Email: c.Email, FullName: c.FullName, Role: role, Institute: c.Institute}
}
