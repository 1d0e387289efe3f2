package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor converts validated claims into the acting user.
func (c *JWTClaims) Actor() *User {
	if c == nil {
		return nil
	}
	return &User{ID: c.UserID, Username: c.Username, FullName: c.FullName, Role: c.Role}
}
