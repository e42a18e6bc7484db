package enrichment

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"mint-watch/internal/solana"
)

// Metadata is display information about a mint.
type Metadata struct {
	Decimals int
	Name     string
	Symbol   string
}

// errMintNotFound is returned when the mint account does not exist.
var errMintNotFound = errors.New("mint account not found")

// mintAccountLen is the size of an SPL Token mint account.
const mintAccountLen = 82

// parseMintDecimals reads decimals from SPL Token mint account data.
// SPL Token Mint layout (82 bytes):
// - mintAuthority: Option<Pubkey> (36 bytes: 4 + 32)
// - supply: u64 (8 bytes)
// - decimals: u8 (1 byte)
// - isInitialized: bool (1 byte)
// - freezeAuthority: Option<Pubkey> (36 bytes: 4 + 32)
func parseMintDecimals(data string) (int, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < mintAccountLen {
		return 0, fmt.Errorf("mint data too short: %d", len(decoded))
	}
	return int(decoded[44]), nil
}

// parseMetaplexNameSymbol reads name and symbol from a Metaplex metadata account.
// Layout: key(1) | updateAuthority(32) | mint(32) | name(borsh string) | symbol(borsh string) | ...
// ok is false when the data is not a MetadataV1 account.
func parseMetaplexNameSymbol(data string) (name, symbol string, ok bool) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(decoded) < 69 {
		return "", "", false
	}

	// MetadataV1 key
	if decoded[0] != 4 {
		return "", "", false
	}

	offset := 65
	name, offset, ok = readBorshString(decoded, offset, 100)
	if !ok {
		return "", "", false
	}
	symbol, _, ok = readBorshString(decoded, offset, 20)
	if !ok {
		return name, "", true
	}
	return name, symbol, true
}

// readBorshString reads a u32-length-prefixed string padded with NULs.
func readBorshString(b []byte, offset, maxLen int) (string, int, bool) {
	if offset+4 > len(b) {
		return "", offset, false
	}
	n := int(binary.LittleEndian.Uint32(b[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(b) {
		return "", offset, false
	}
	s := strings.TrimRight(string(b[offset:offset+n]), "\x00")
	return strings.TrimSpace(s), offset + n, true
}

// MetadataAddress derives the Metaplex metadata PDA for mint.
// Seeds: ["metadata", metadata_program_id, mint]
func MetadataAddress(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programBytes, err := base58.Decode(solana.MetadataProgramID)
	if err != nil {
		return "", fmt.Errorf("decode metadata program: %w", err)
	}
	if len(mintBytes) != 32 {
		return "", fmt.Errorf("mint is %d bytes, want 32", len(mintBytes))
	}

	return findProgramAddress([][]byte{
		[]byte("metadata"),
		programBytes,
		mintBytes,
	}, programBytes)
}

// findProgramAddress searches bumps from 255 down for an off-curve hash:
// sha256(seeds || bump || programID || "ProgramDerivedAddress").
func findProgramAddress(seeds [][]byte, programID []byte) (string, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), nil
		}
	}
	return "", errors.New("no viable bump seed")
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
