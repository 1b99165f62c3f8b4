package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the bearer token payload issued by the auth provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into an Actor.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Email: c.Email, FullName: c.FullName, Role: c.Role}
}
