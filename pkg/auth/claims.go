package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the JECO+ gateway.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

// HasRole reports whether the token carries role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

const (
	RoleCustomer = "customer"
	RolePartner  = "partner"
	RoleOperator = "operator"
)
