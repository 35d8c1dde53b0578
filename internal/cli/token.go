package cli

import (
	"fmt"
	"time"

	"ride-dispatch/internal/domain/user"
	"ride-dispatch/internal/general/jwt"
)

// GenerateUserToken mints a JWT for a seeded user.
//
// Typical use (dev-only):
//
//	token, _, err := cli.GenerateUserToken(secret, "driver-1", "DRIVER", "co-1", 2*time.Hour)
//
// Keep this package dev/internal only. Do not call it from production code paths.
func GenerateUserToken(secret, userID, roleStr, companyID string, ttl time.Duration) (string, jwt.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}

	mgr := jwt.NewManager(secret, ttl)

	token, claims, err := mgr.IssueUserToken(userID, role, companyID)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
