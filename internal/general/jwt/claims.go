package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"ride-dispatch/internal/domain/chat"
	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/ports"
)

// Issuer is stamped into every token and required on parse.
const Issuer = "ride-dispatch"

// Claims defines our canonical JWT claims payload.
type Claims struct {
	Role      user.Role `json:"role"`       // DRIVER/DISPATCHER/CUSTOMER/ADMIN
	CompanyID string    `json:"company_id"` // tenant the user acts for
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs end-user claims.
func NewUserClaims(userID string, role user.Role, companyID string, now time.Time, ttl time.Duration) *Claims {
	now = now.UTC()
	return &Claims{
		Role:      role,
		CompanyID: companyID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// Actor is the service-level identity of the token holder.
func (c *Claims) Actor() ports.Actor {
	return ports.Actor{UserID: c.Subject, Role: c.Role, CompanyID: c.CompanyID}
}

// Participant maps the holder to a conversation participant. Admins have none.
func (c *Claims) Participant() (chat.Participant, bool) {
	kind, ok := c.Role.ParticipantKind()
	if !ok {
		return chat.Participant{}, false
	}
	return chat.Participant{Kind: kind, ID: c.Subject}, true
}
