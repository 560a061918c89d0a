package crypto

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testDeriveStateKey_DeterministicAndScoped(t *rapid.T) {
	master := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "master")
	scopeA := rapid.StringMatching(`https?://[a-z]{1,12}(:[0-9]{2,5})?/api`).Draw(t, "scopeA")
	scopeB := rapid.StringMatching(`https?://[a-z]{1,12}(:[0-9]{2,5})?/api`).Draw(t, "scopeB")

	k1 := DeriveStateKey(master, scopeA, 1)
	k2 := DeriveStateKey(master, scopeA, 1)
	if !bytes.Equal(k1, k2) {
		t.Fatal("derivation is not deterministic")
	}
	if len(k1) != KeySize {
		t.Fatalf("key size %d", len(k1))
	}
	if scopeA != scopeB && bytes.Equal(k1, DeriveStateKey(master, scopeB, 1)) {
		t.Fatal("distinct scopes share a key")
	}
	if bytes.Equal(k1, DeriveStateKey(master, scopeA, 2)) {
		t.Fatal("distinct versions share a key")
	}
}

func TestDeriveStateKey_DeterministicAndScoped(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testDeriveStateKey_DeterministicAndScoped)
}

func TestParseMasterKey(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)

	parsed, err := ParseMasterKey(hex.EncodeToString(key) + "\n")
	require.NoError(t, err)
	require.Equal(t, key, parsed)

	_, err = ParseMasterKey("abcd")
	require.Error(t, err)
	_, err = ParseMasterKey("zz")
	require.Error(t, err)
}

func TestLoadOrCreateMasterKey_StableAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.key")

	first, err := LoadOrCreateMasterKey(path)
	require.NoError(t, err)
	second, err := LoadOrCreateMasterKey(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGenerateToken_UniqueAndURLSafe(t *testing.T) {
	t.Parallel()
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		tok, err := GenerateToken()
		require.NoError(t, err)
		require.Len(t, tok, 43)
		require.Regexp(t, `^[A-Za-z0-9_-]+$`, tok)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}
