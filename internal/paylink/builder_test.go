package paylink

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	r, failed := NewRegistry([]*entities.BankConfig{
		{Bank: "bakai", URLTemplate: "https://bakai24.app/pay/{hash}", MinAmount: entities.MustMoney("10"), MaxAmount: entities.MustMoney("50000"), Enabled: true},
		{Bank: "MBank", URLTemplate: "https://app.mbank.kg/qr/#{hash}", Enabled: true},
		{Bank: "rsk", URLTemplate: "https://rsk.kg/pay?h={hash}", Enabled: true},
		{Bank: "kicb", URLTemplate: "https://kicb.net/p/{hash}", Codec: "tagged", Enabled: false},
		{Bank: "broken", URLTemplate: "https://broken.example/no-placeholder", Enabled: true},
	}, now)
	require.Len(t, failed, 1)
	require.ErrorIs(t, failed["broken"], domainerrors.ErrConfiguration)
	return r
}

func TestRegistry_CodecSelection(t *testing.T) {
	r := testRegistry(t)

	bakai, err := r.Resolve("bakai")
	require.NoError(t, err)
	assert.Equal(t, CodecTagged, bakai.Codec.Kind())
	assert.False(t, bakai.Fallback)

	mbank, err := r.Resolve(" mbank ")
	require.NoError(t, err)
	assert.Equal(t, CodecELQR, mbank.Codec.Kind())

	rsk, err := r.Resolve("rsk")
	require.NoError(t, err)
	assert.Equal(t, CodecGeneric, rsk.Codec.Kind())
	assert.True(t, rsk.Fallback, "generic selection must be signalled")

	kicb, err := r.Resolve("kicb")
	require.NoError(t, err)
	assert.Equal(t, CodecTagged, kicb.Codec.Kind())

	_, err = r.Resolve("broken")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedBank)
	_, err = r.Resolve("nope")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedBank)

	assert.ElementsMatch(t, []string{"bakai", "mbank", "rsk", "kicb"}, r.Banks())
}

func TestRegistry_UpsertValidation(t *testing.T) {
	r, _ := NewRegistry(nil, nil)

	err := r.Upsert(&entities.BankConfig{Bank: " ", URLTemplate: "x{hash}"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	err = r.Upsert(&entities.BankConfig{Bank: "a", URLTemplate: "{hash}/{hash}"})
	assert.ErrorIs(t, err, domainerrors.ErrConfiguration)

	err = r.Upsert(&entities.BankConfig{Bank: "a", URLTemplate: "{hash}", Codec: "mystery"})
	assert.ErrorIs(t, err, domainerrors.ErrConfiguration)

	err = r.Upsert(&entities.BankConfig{Bank: "a", URLTemplate: "{hash}", MinAmount: entities.MustMoney("100"), MaxAmount: entities.MustMoney("10")})
	assert.ErrorIs(t, err, domainerrors.ErrConfiguration)

	require.NoError(t, r.Upsert(&entities.BankConfig{Bank: "a", URLTemplate: "{hash}", MaxWaitMinutes: null.IntFrom(5)}))
	r.Remove("A")
	_, err = r.Resolve("a")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedBank)
}

func TestBuilder_BuildLink(t *testing.T) {
	b := NewBuilder(testRegistry(t))

	url, hash, err := b.BuildLink("bakai", entities.MustMoney("750.00"), "base123")
	require.NoError(t, err)
	assert.Equal(t, "https://bakai24.app/pay/"+hash, url)

	amount, ok := b.DecodeHash("bakai", hash)
	require.True(t, ok)
	assert.Equal(t, "750.00", amount.String())

	again, _, err := b.BuildLink("bakai", entities.MustMoney("750.00"), "base123")
	require.NoError(t, err)
	assert.Equal(t, url, again, "links are reproducible for the same amount")
}

func TestBuilder_BuildReportsCodecPath(t *testing.T) {
	b := NewBuilder(testRegistry(t))

	link, err := b.Build("mbank", entities.MustMoney("20.00"), staticQR)
	require.NoError(t, err)
	assert.Equal(t, CodecELQR, link.Codec)
	assert.True(t, link.Invertible)
	assert.False(t, link.Fallback)
	assert.True(t, strings.HasPrefix(link.URL, "https://app.mbank.kg/qr/#"))
	assert.NotContains(t, link.URL, " ", "hash is escaped in the url")

	link, err = b.Build("rsk", entities.MustMoney("20.00"), "anything")
	require.NoError(t, err)
	assert.Equal(t, CodecGeneric, link.Codec)
	assert.False(t, link.Invertible)
	assert.True(t, link.Fallback)

	_, ok := b.DecodeHash("rsk", link.Hash)
	assert.False(t, ok)
}

func TestBuilder_Failures(t *testing.T) {
	b := NewBuilder(testRegistry(t))

	_, _, err := b.BuildLink("unknown", entities.MustMoney("20"), "base")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedBank)

	_, _, err = b.BuildLink("kicb", entities.MustMoney("20"), "base")
	assert.ErrorIs(t, err, domainerrors.ErrBankDisabled)

	for _, a := range []string{"0", "-1", "9.99", "50000.01"} {
		_, _, err = b.BuildLink("bakai", entities.MustMoney(a), "base123")
		assert.ErrorIs(t, err, domainerrors.ErrAmountOutOfRange, a)
	}

	_, _, err = b.BuildLink("bakai", entities.MustMoney("10"), "  ")
	assert.ErrorIs(t, err, domainerrors.ErrConfiguration)

	_, _, err = b.BuildLink("mbank", entities.MustMoney("10"), "base123")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidBaseHash)

	_, ok := b.DecodeHash("unknown", "x")
	assert.False(t, ok)
}

func TestBuilder_Describe(t *testing.T) {
	b := NewBuilder(testRegistry(t))

	info, err := b.Describe("rsk")
	require.NoError(t, err)
	assert.Equal(t, SchemeInfo{Bank: "rsk", Codec: CodecGeneric, Invertible: false, Fallback: true, Enabled: true}, info)

	info, err = b.Describe("kicb")
	require.NoError(t, err)
	assert.Equal(t, CodecTagged, info.Codec)
	assert.False(t, info.Enabled)

	_, err = b.Describe("nope")
	require.ErrorIs(t, err, domainerrors.ErrUnsupportedBank)
}

func TestRegistry_CheckValidatesBaseHash(t *testing.T) {
	r, _ := NewRegistry(nil, nil)

	require.NoError(t, r.Check(&entities.BankConfig{Bank: "bakai", URLTemplate: "https://b/{hash}", BaseHash: "base123"}))
	require.NoError(t, r.Check(&entities.BankConfig{Bank: "bakai", URLTemplate: "https://b/{hash}"}))

	err := r.Check(&entities.BankConfig{Bank: "bakai", URLTemplate: "https://b/{hash}", BaseHash: "has space"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidBaseHash)

	err = r.Check(&entities.BankConfig{Bank: "mbank", URLTemplate: "https://m/{hash}", BaseHash: "not-tlv"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidBaseHash)

	_, err = r.Resolve("bakai")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedBank, "Check must not install the scheme")
}
