package testdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlocker_StartsBlocked(t *testing.T) {
	var b Blocker
	require.False(t, b.Allowed())
	require.ErrorIs(t, b.Check(), ErrAccessBlocked)
}

func TestBlocker_NestedUnblock(t *testing.T) {
	var b Blocker

	outer := b.Unblock()
	inner := b.Unblock()
	require.True(t, b.Allowed())

	inner()
	require.True(t, b.Allowed(), "outer unblock still active")

	inner()
	require.True(t, b.Allowed(), "restore is idempotent")

	outer()
	require.False(t, b.Allowed())

	again := b.Unblock()
	require.NoError(t, b.Check())
	again()
	require.ErrorIs(t, b.Check(), ErrAccessBlocked)
}
