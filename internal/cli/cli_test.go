package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-dispatch/internal/domain/user"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		args     []string
		wantMode string
		wantRest []string
		wantErr  bool
	}{
		{[]string{"--mode=dispatch-service", "--max-concurrent=5"}, ModeDispatch, []string{"--max-concurrent=5"}, false},
		{[]string{"migrate", "--config=x.yaml"}, ModeMigrate, []string{"--config=x.yaml"}, false},
		{[]string{"--mode=d"}, ModeDispatch, nil, false},
		{[]string{"--mode=ride-service"}, "", nil, true},
		{[]string{"--max-concurrent=5"}, "", nil, true},
	}

	for _, tc := range cases {
		mode, rest, err := ParseMode(tc.args)
		if tc.wantErr {
			require.Error(t, err, tc.args)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.wantMode, mode)
		require.Equal(t, tc.wantRest, rest)
	}
}

func TestGenerateUserToken(t *testing.T) {
	tok, claims, err := GenerateUserToken("s3cret", "ops-1", "dispatcher", "co-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, user.RoleDispatcher, claims.Role)
	require.Equal(t, "co-1", claims.CompanyID)

	_, _, err = GenerateUserToken("s3cret", "ops-1", "PASSENGER", "co-1", time.Hour)
	require.Error(t, err)
}
