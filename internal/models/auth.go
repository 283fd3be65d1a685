package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates caller roles recognised by the API.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleHRManager UserRole = "HR_MANAGER"
	RoleEmployee  UserRole = "EMPLOYEE"
)

// JWTClaims carries the authenticated caller identity. Tokens are minted by
// the platform's identity service; this API only validates them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
