package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testAddress(fill byte) Address {
	var addr Address
	copy(addr[:], bytes.Repeat([]byte{fill}, AddressLength))
	return addr
}

func TestDeriveAuthorityDeterministic(t *testing.T) {
	program := testAddress(0x01)
	parent := testAddress(0x02)

	found, nonce, err := FindAuthority(program, parent, RoleMinter)
	require.NoError(t, err)

	derived, err := DeriveAuthority(program, parent, RoleMinter, nonce)
	require.NoError(t, err)
	require.Equal(t, found, derived)

	again, err := Capability{Parent: parent, Role: RoleMinter, Nonce: nonce}.Address(program)
	require.NoError(t, err)
	require.Equal(t, derived, again)
	require.False(t, IsOnCurve(derived))
}

func TestDeriveAuthorityScopedByParentRoleAndProgram(t *testing.T) {
	program := testAddress(0x01)
	parent := testAddress(0x02)

	minter, nonce, err := FindAuthority(program, parent, RoleMinter)
	require.NoError(t, err)

	if other, err := DeriveAuthority(program, testAddress(0x03), RoleMinter, nonce); err == nil {
		require.NotEqual(t, minter, other)
	}
	if holder, err := DeriveAuthority(program, parent, RoleHolder, nonce); err == nil {
		require.NotEqual(t, minter, holder)
	}
	if foreign, err := DeriveAuthority(testAddress(0x09), parent, RoleMinter, nonce); err == nil {
		require.NotEqual(t, minter, foreign)
	}
}

func TestDeriveAuthorityRejectsOnCurveSeeds(t *testing.T) {
	program := testAddress(0x07)
	parent := testAddress(0x08)

	sawInvalid := false
	for nonce := 0; nonce < 256; nonce++ {
		_, err := DeriveAuthority(program, parent, RoleHolder, uint8(nonce))
		if err != nil {
			require.ErrorIs(t, err, ErrInvalidSeeds)
			sawInvalid = true
		}
	}
	// Roughly half of all nonces derive on-curve points.
	require.True(t, sawInvalid)
}

func TestDeriveAuthorityRejectsLongRole(t *testing.T) {
	_, err := DeriveAuthority(testAddress(1), testAddress(2), Role(bytes.Repeat([]byte("x"), 33)), 1)
	require.ErrorIs(t, err, ErrSeedTooLong)
}
