package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

type AccessClaims struct {
	Role     string `json:"role"`
	Name     string `json:"name,omitempty"`
	VIP      bool   `json:"vip"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// SignAccess issues an HS256 access token. Production tokens come from the
// auth service; this is used by tests and local tooling.
func SignAccess(claims AccessClaims, secret []byte, exp time.Time) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(time.Now())
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
