package secretbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0000000000000000000000000000000000000000000000000000000000000001"

func TestNew_RejectsBadKeys(t *testing.T) {
	_, err := New("zz")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = New("00ff")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s, err := New(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("base123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "base123")
	assert.Equal(t, 4, strings.Count(sealed, "."), "compact JWE has five parts")

	other, err := s.Seal("base123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, other, "fresh nonce per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "base123", plain)
}

func TestSealOpen_Empty(t *testing.T) {
	s, err := New(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestOpen_WrongKeyOrGarbage(t *testing.T) {
	a, err := New(testKey)
	require.NoError(t, err)
	b, err := New(strings.Repeat("ab", 32))
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrCorruptSecret)

	_, err = a.Open("not-a-jwe")
	assert.ErrorIs(t, err, ErrCorruptSecret)
}
