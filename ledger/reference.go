/*
reference.go - Unique human-traceable transaction references

PURPOSE:
  Every ledger entry is stamped with a reference like TRF-K3M9X2QAB7:
  a fixed prefix plus random base-36 uppercase characters. References are
  unique across the entire ledger for the lifetime of the system.

UNIQUENESS:
  Random generation alone is not a guarantee. The store enforces a UNIQUE
  constraint on the reference column, and the engine retries with a fresh
  candidate when an append reports ErrDuplicateReference (see engine.go).
*/
package ledger

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// References produces candidate reference strings. Implementations must be
// safe for concurrent use.
type References interface {
	Generate() (string, error)
}

// =============================================================================
// REFERENCE GENERATOR - PREFIX-RANDOM, crypto/rand base-36
// =============================================================================

const (
	DefaultReferencePrefix = "TRF"
	DefaultReferenceLength = 10

	referenceCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type ReferenceGenerator struct {
	Prefix string // without the trailing dash
	Length int    // number of random characters
}

func NewReferenceGenerator(prefix string, length int) *ReferenceGenerator {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	if length <= 0 {
		length = DefaultReferenceLength
	}
	return &ReferenceGenerator{Prefix: prefix, Length: length}
}

// Generate returns a fresh candidate of the form PREFIX-RANDOM.
func (g *ReferenceGenerator) Generate() (string, error) {
	buf := make([]byte, g.Length)
	max := big.NewInt(int64(len(referenceCharset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw random reference character: %w", err)
		}
		buf[i] = referenceCharset[n.Int64()]
	}
	return g.Prefix + "-" + string(buf), nil
}
