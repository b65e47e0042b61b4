// Package session carries the signed-in user's identity and status flags
// from the auth middleware into handlers and workflows.
package session

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/pkg/tokens"
)

const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxName     = "user_name"
	CtxVIP      = "vip"
	CtxVerified = "verified"
)

var ErrUnauthorized = errors.New("unauthorized")

type Session struct {
	UserID   uuid.UUID
	Role     string
	Name     string
	VIP      bool
	Verified bool
}

func (s Session) IsAdmin() bool { return s.Role == tokens.RoleAdmin }

func FromClaims(claims *tokens.AccessClaims) (Session, error) {
	if claims == nil {
		return Session{}, ErrUnauthorized
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	return Session{
		UserID:   id,
		Role:     claims.Role,
		Name:     claims.Name,
		VIP:      claims.VIP,
		Verified: claims.Verified,
	}, nil
}

func Set(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(CtxUserID, claims.Subject)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxName, claims.Name)
	c.Set(CtxVIP, claims.VIP)
	c.Set(CtxVerified, claims.Verified)
}

func FromEcho(c echo.Context) (Session, error) {
	s, ok := c.Get(CtxUserID).(string)
	if !ok || s == "" {
		return Session{}, ErrUnauthorized
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return Session{}, ErrUnauthorized
	}

	role, _ := c.Get(CtxRole).(string)
	name, _ := c.Get(CtxName).(string)
	vip, _ := c.Get(CtxVIP).(bool)
	verified, _ := c.Get(CtxVerified).(bool)

	return Session{UserID: id, Role: role, Name: name, VIP: vip, Verified: verified}, nil
}

// Optional returns the session when the request went through the optional
// auth middleware and carried a valid token.
func Optional(c echo.Context) (Session, bool) {
	s, err := FromEcho(c)
	return s, err == nil
}
