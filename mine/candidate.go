package mine

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/aead/chacha20/chacha"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// This file maps search indices to the candidate blocks that get digested. Generate is the primary
// strategy; ChunkSource is the legacy randomized one.

// CandidateSize is the size in bytes of a candidate block.
const CandidateSize = 32

// Candidate is a fixed-size byte block derived from a search index.
type Candidate = [CandidateSize]byte

// Generate derives the candidate block for index. It is deterministic and total over all uint64
// values: the index occupies the first 8 bytes little-endian, and each remaining byte i is
// byte(index>>(i%8)) ^ byte(i). Accelerator kernels reproduce this mapping exactly, which is what
// lets devices and CPU workers share one index space.
func Generate(index uint64) Candidate {
	var c Candidate
	binary.LittleEndian.PutUint64(c[:8], index)
	for i := 8; i < CandidateSize; i++ {
		c[i] = byte(index>>(uint(i)%8)) ^ byte(i)
	}
	return c
}

const (
	chunkSize   = 4096                      /* bytes of keystream per refresh */
	shiftWindow = chunkSize - CandidateSize /* overlapping windows per refresh */
)

// ChunkSource is the opt-in randomized candidate strategy: a ChaCha20 keystream buffer is
// refreshed periodically, and successive candidates are overlapping byte-shifted windows of it.
// Unlike Generate it is not reproducible from an index, so it cannot partition the search space
// exactly: workers running from independent sources may duplicate or skip candidates. It survives
// only for runs that must not embed a visible counter in the candidate itself.
//
// A ChunkSource is owned by a single worker; it is not safe for concurrent use.
type ChunkSource struct {
	key   [chacha.KeySize]byte
	buf   [chunkSize]byte
	shift int
	ctr   uint64
}

// NewChunkSource seeds a source from crypto/rand.
func NewChunkSource() (*ChunkSource, error) {
	s := &ChunkSource{}
	if _, err := rand.Read(s.key[:]); err != nil {
		return nil, err
	}
	s.refresh()
	return s, nil
}

func (s *ChunkSource) refresh() {
	var nonce [chacha.XNonceSize]byte
	binary.LittleEndian.PutUint64(nonce[:8], s.ctr)
	s.ctr++
	for i := range s.buf {
		s.buf[i] = 0
	}
	chacha.XORKeyStream(s.buf[:], s.buf[:], nonce[:], s.key[:], 20)
	s.shift = 0
}

// Next returns the next window, refreshing the buffer once shiftWindow windows have been taken.
func (s *ChunkSource) Next() Candidate {
	if s.shift == shiftWindow {
		s.refresh()
	}
	var c Candidate
	copy(c[:], s.buf[s.shift:])
	s.shift++
	return c
}
