package auth

import "github.com/golang-jwt/jwt/v5"

const adminTokenType = "admin"

// Claims covers both token shapes: user tokens carry only userId, admin
// tokens carry adminId, username, role and type "admin".
type Claims struct {
	UserID   string `json:"userId,omitempty"`
	AdminID  string `json:"adminId,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Type     string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Type == adminTokenType
}
