package mine

import (
	"fmt"

	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// This file derives identifiers from candidate digests and implements the prefix test that drives
// the search.

// DigestSize is the size in bytes of a candidate digest.
const DigestSize = 32

// IdentifierLen is the length in characters of a rendered identifier: two characters per byte for
// the leading half of a digest.
const IdentifierLen = 32

// Alphabet maps nibble values 0 through 15 to the 16 identifier symbols.
const Alphabet = "abcdefghijklmnop"

// Algo selects the digest function applied to candidate blocks. Both options produce 256-bit
// digests and are interchangeable everywhere downstream of Sum.
type Algo uint8

const (
	SHA256 Algo = iota /* via minio/sha256-simd */
	BLAKE3             /* via zeebo/blake3 */
)

func (a Algo) String() string {
	if a == BLAKE3 {
		return "blake3"
	}
	return "sha256"
}

// Sum digests a candidate block.
func (a Algo) Sum(c *Candidate) [DigestSize]byte {
	if a == BLAKE3 {
		return blake3.Sum256(c[:])
	}
	return sha256.Sum256(c[:])
}

// ToIdentifier renders the first 16 bytes of a digest as a 32-character string over Alphabet,
// most-significant nibble first per byte.
func ToIdentifier(digest [DigestSize]byte) string {
	var id [IdentifierLen]byte
	for i, v := range digest[:IdentifierLen/2] {
		id[0+i*2] = Alphabet[v>>4]
		id[1+i*2] = Alphabet[v&15]
	}
	return string(id[:])
}

// MatchesPrefix reports whether ToIdentifier(digest) begins with prefix. It compares nibble by
// nibble and never materializes the identifier string; the empty prefix matches everything and
// prefixes longer than IdentifierLen match nothing.
func MatchesPrefix(digest [DigestSize]byte, prefix string) bool {
	if len(prefix) > IdentifierLen {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		nib := digest[i>>1] >> 4
		if i&1 == 1 {
			nib = digest[i>>1] & 15
		}
		if prefix[i] != Alphabet[nib] {
			return false
		}
	}
	return true
}

// ValidatePrefix rejects prefixes containing symbols outside Alphabet. Overlong prefixes are
// valid; they simply never match.
func ValidatePrefix(prefix string) error {
	for i := 0; i < len(prefix); i++ {
		if c := prefix[i]; c < 'a' || c > 'p' {
			return fmt.Errorf("%w: %q at index %d (alphabet is a-p)", ErrBadPrefix, c, i)
		}
	}
	return nil
}
