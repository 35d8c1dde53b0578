package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct {
	N    int
	Tags []string
}

func (c counter) Clone() counter {
	return counter{N: c.N, Tags: append([]string(nil), c.Tags...)}
}

func bump(c *counter) error {
	c.N++
	c.Tags = append(c.Tags, "bumped")
	return nil
}

func TestCommitKeepsTentativeState(t *testing.T) {
	c := counter{N: 1}
	u, err := Begin(&c, bump)
	require.NoError(t, err)
	require.Equal(t, 2, c.N)
	require.Equal(t, 1, u.Snapshot().N)

	var written counter
	err = u.Commit(context.Background(), func(_ context.Context, next counter) error {
		written = next
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, c.N)
	require.Equal(t, 2, written.N)
	require.True(t, u.Settled())
	require.ErrorIs(t, u.Commit(context.Background(), nil), ErrSettled)
}

func TestCommitFailureRestoresSnapshot(t *testing.T) {
	c := counter{N: 1, Tags: []string{"orig"}}
	u, err := Begin(&c, bump)
	require.NoError(t, err)

	lost := errors.New("precondition lost")
	err = u.Commit(context.Background(), func(context.Context, counter) error { return lost })
	require.ErrorIs(t, err, lost)
	require.Equal(t, counter{N: 1, Tags: []string{"orig"}}, c)
}

func TestCommitAfterCancellationRollsBackWithoutWriting(t *testing.T) {
	c := counter{N: 5}
	u, err := Begin(&c, bump)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = u.Commit(ctx, func(context.Context, counter) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
	require.Equal(t, 5, c.N)
}

func TestBeginMutateErrorLeavesTargetUntouched(t *testing.T) {
	c := counter{N: 3}
	boom := errors.New("illegal")
	u, err := Begin(&c, func(c *counter) error {
		c.N = 100
		return boom
	})
	require.Nil(t, u)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, c.N)

	_, err = Begin[counter](nil, bump)
	require.ErrorIs(t, err, ErrNilTarget)
}

func TestRollback(t *testing.T) {
	c := counter{N: 1}
	u, err := Begin(&c, bump)
	require.NoError(t, err)
	require.Equal(t, 2, u.Tentative().N)

	u.Rollback()
	require.Equal(t, 1, c.N)
	require.True(t, u.Settled())
	u.Rollback()
	require.Equal(t, 1, c.N)
}
