package user

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/chat"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" dispatcher ")
	require.NoError(t, err)
	require.Equal(t, RoleDispatcher, r)
	require.True(t, r.IsDispatcher())

	_, err = ParseRole("PASSENGER")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestParticipantKind(t *testing.T) {
	k, ok := RoleCustomer.ParticipantKind()
	require.True(t, ok)
	require.Equal(t, chat.KindCustomer, k)

	_, ok = RoleAdmin.ParticipantKind()
	require.False(t, ok)
}
