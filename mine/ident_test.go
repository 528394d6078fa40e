package mine

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

func TestToIdentifier(t *testing.T) {
	t.Parallel()
	var zero [DigestSize]byte
	require.Equal(t, strings.Repeat("a", IdentifierLen), ToIdentifier(zero))

	/* Most-significant nibble first per byte. */
	var d [DigestSize]byte
	d[0], d[1] = 0x12, 0xfe
	id := ToIdentifier(d)
	require.Equal(t, "bcpo", id[:4])

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		rng.Read(d[:])
		id := ToIdentifier(d)
		require.Len(t, id, IdentifierLen)
		for _, c := range id {
			require.True(t, c >= 'a' && c <= 'p', "symbol %q outside alphabet", c)
		}
	}
}

/* MatchesPrefix must agree with the naive starts-with definition for every prefix length. */
func TestMatchesPrefixEquivalence(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(2))
	var d [DigestSize]byte
	for i := 0; i < 200; i++ {
		rng.Read(d[:])
		id := ToIdentifier(d)
		for ln := 0; ln <= IdentifierLen; ln++ {
			prefix := id[:ln]
			require.True(t, MatchesPrefix(d, prefix), "own prefix of length %d", ln)

			if ln > 0 {
				/* Perturb the last symbol; the naive definition must still be matched. */
				mut := []byte(prefix)
				mut[ln-1] = Alphabet[(strings.IndexByte(Alphabet, mut[ln-1])+1)%16]
				assert.Equal(t, strings.HasPrefix(id, string(mut)), MatchesPrefix(d, string(mut)))
			}

			random := randomPrefix(rng, ln)
			assert.Equal(t, strings.HasPrefix(id, random), MatchesPrefix(d, random))
		}
	}
}

func TestMatchesPrefixEdges(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))
	var d [DigestSize]byte
	for i := 0; i < 100; i++ {
		rng.Read(d[:])
		assert.True(t, MatchesPrefix(d, ""), "empty prefix matches everything")
		over := ToIdentifier(d) + "a"
		assert.False(t, MatchesPrefix(d, over), "prefixes beyond IdentifierLen never match")
	}
}

func TestValidatePrefix(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"", "a", "ok", Alphabet, strings.Repeat("p", 40)} {
		assert.NoError(t, ValidatePrefix(ok), ok)
	}
	for _, bad := range []string{"q", "z", "A", "a1", "ab cd", strings.Repeat("z", 32)} {
		err := ValidatePrefix(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrBadPrefix))
	}
}

func TestAlgoSum(t *testing.T) {
	t.Parallel()
	c := Generate(42)
	assert.Equal(t, SHA256.Sum(&c), SHA256.Sum(&c))
	assert.Equal(t, BLAKE3.Sum(&c), BLAKE3.Sum(&c))
	assert.NotEqual(t, SHA256.Sum(&c), BLAKE3.Sum(&c))
	assert.Equal(t, "sha256", SHA256.String())
	assert.Equal(t, "blake3", BLAKE3.String())
}

func randomPrefix(rng *rand.Rand, ln int) string {
	b := make([]byte, ln)
	for i := range b {
		b[i] = Alphabet[rng.Intn(16)]
	}
	return string(b)
}

func BenchmarkAttempt(b *testing.B) {
	b.SetBytes(CandidateSize)
	b.ReportAllocs()
	b.ResetTimer()
	var sink bool
	for i := b.N; i > 0; i-- {
		c := Generate(uint64(i))
		sink = MatchesPrefix(SHA256.Sum(&c), "pppppppp")
	}
	_ = sink
}
