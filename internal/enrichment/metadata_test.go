package enrichment

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataAddress(t *testing.T) {
	pda, err := MetadataAddress(testMint)
	require.NoError(t, err)

	decoded, err := base58.Decode(pda)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
	assert.False(t, isOnCurve(decoded), "PDA must be off curve")

	again, err := MetadataAddress(testMint)
	require.NoError(t, err)
	assert.Equal(t, pda, again)
}

func TestMetadataAddress_InvalidMint(t *testing.T) {
	_, err := MetadataAddress("abc")
	assert.Error(t, err)

	_, err = MetadataAddress("0OIl")
	assert.Error(t, err)
}

func TestParseMintDecimals(t *testing.T) {
	d, err := parseMintDecimals(mintAccountData(6))
	require.NoError(t, err)
	assert.Equal(t, 6, d)

	_, err = parseMintDecimals("AAAA")
	assert.Error(t, err)

	_, err = parseMintDecimals("%%%")
	assert.Error(t, err)
}

func TestParseMetaplexNameSymbol(t *testing.T) {
	name, symbol, ok := parseMetaplexNameSymbol(metaplexData("Dog Coin", "DOG"))
	require.True(t, ok)
	assert.Equal(t, "Dog Coin", name)
	assert.Equal(t, "DOG", symbol)

	_, _, ok = parseMetaplexNameSymbol(mintAccountData(0))
	assert.False(t, ok, "mint account is not metadata")
}
