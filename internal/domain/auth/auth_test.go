package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccounts_SeedsDefaultAdmin(t *testing.T) {
	a := NewAccounts(nil, NewHasher("pepper"))

	require.NoError(t, a.Authenticate("admin", "admin123"))
	require.ErrorIs(t, a.Authenticate("admin", "wrong"), ErrBadCredentials)
	require.ErrorIs(t, a.Authenticate("nobody", "admin123"), ErrBadCredentials)
}

func TestAccounts_LoadedRecordsSuppressDefault(t *testing.T) {
	h := NewHasher("pepper")
	a := NewAccounts([]Admin{{Username: "ops", PassHash: h.Hash("secret")}}, h)

	require.NoError(t, a.Authenticate("ops", "secret"))
	require.ErrorIs(t, a.Authenticate("admin", "admin123"), ErrBadCredentials)
}

func TestAccounts_ChangePassword(t *testing.T) {
	a := NewAccounts(nil, NewHasher("pepper"))

	require.ErrorIs(t, a.ChangePassword("admin", "admin123", "new", "different"), ErrPasswordMismatch)
	require.ErrorIs(t, a.ChangePassword("admin", "admin123", "", ""), ErrPasswordMismatch)
	require.ErrorIs(t, a.ChangePassword("admin", "wrong", "new", "new"), ErrBadCredentials)

	require.NoError(t, a.ChangePassword("admin", "admin123", "new", "new"))
	require.NoError(t, a.Authenticate("admin", "new"))
	require.ErrorIs(t, a.Authenticate("admin", "admin123"), ErrBadCredentials)
}

func TestHasher_PepperChangesHash(t *testing.T) {
	h1 := NewHasher("one")
	h2 := NewHasher("two")

	assert.NotEqual(t, h1.Hash("admin123"), h2.Hash("admin123"))
	assert.Equal(t, h1.Hash("admin123"), h1.Hash("admin123"))
}

func TestAccounts_SnapshotRoundTrip(t *testing.T) {
	h := NewHasher("pepper")
	a := NewAccounts(nil, h)
	require.NoError(t, a.ChangePassword("admin", "admin123", "rotated", "rotated"))

	reloaded := NewAccounts(a.Snapshot(), h)
	require.NoError(t, reloaded.Authenticate("admin", "rotated"))
}
