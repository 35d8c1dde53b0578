package user

import (
	"errors"
	"strings"

	"ride-dispatch/internal/domain/chat"
)

// Role is the role carried in access tokens.
type Role string

const (
	RoleDriver     Role = "DRIVER"
	RoleDispatcher Role = "DISPATCHER"
	RoleCustomer   Role = "CUSTOMER"
	RoleAdmin      Role = "ADMIN"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes (uppercases+trims) and validates a role string.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if role.Valid() {
		return role, nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether role is one of the allowed role constants.
func (role Role) Valid() bool {
	switch role {
	case RoleDriver, RoleDispatcher, RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}

// Convenience helpers.
func (role Role) IsDriver() bool     { return role == RoleDriver }
func (role Role) IsDispatcher() bool { return role == RoleDispatcher }
func (role Role) IsCustomer() bool   { return role == RoleCustomer }
func (role Role) IsAdmin() bool      { return role == RoleAdmin }

// ParticipantKind maps a role to the conversation party it acts as.
// Admins have no conversation identity.
func (role Role) ParticipantKind() (chat.Kind, bool) {
	switch role {
	case RoleDriver:
		return chat.KindDriver, true
	case RoleDispatcher:
		return chat.KindDispatcher, true
	case RoleCustomer:
		return chat.KindCustomer, true
	default:
		return "", false
	}
}
