package hash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// ID is a content identifier: the lowercase hex digest of an object's bytes.
// The zero value means "no identifier".
type ID string

// Algorithm names a supported digest.
type Algorithm string

const (
	XXH3   Algorithm = "xxh3"   // 128-bit, 32 hex chars
	BLAKE3 Algorithm = "blake3" // 256-bit, 64 hex chars
)

// Default matches the algorithm new repositories are created with.
const Default = XXH3

var ErrInvalidID = errors.New("invalid content identifier")

// Hasher derives content identifiers from bytes.
type Hasher interface {
	Algorithm() Algorithm
	// Size is the digest length in bytes.
	Size() int
	Sum(data []byte) ID
}

// New returns the hasher for the named algorithm. An empty name selects Default.
func New(name string) (Hasher, error) {
	switch Algorithm(strings.ToLower(name)) {
	case "", XXH3, "xxh3-128":
		return xxh3Hasher{}, nil
	case BLAKE3:
		return blake3Hasher{}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", name)
	}
}

// MustNew is New for names known at compile time.
func MustNew(name string) Hasher {
	h, err := New(name)
	if err != nil {
		panic(err)
	}
	return h
}

type xxh3Hasher struct{}

func (xxh3Hasher) Algorithm() Algorithm { return XXH3 }
func (xxh3Hasher) Size() int            { return 16 }
func (xxh3Hasher) Sum(data []byte) ID {
	h := xxh3.Hash128(data).Bytes()
	return ID(hex.EncodeToString(h[:]))
}

type blake3Hasher struct{}

func (blake3Hasher) Algorithm() Algorithm { return BLAKE3 }
func (blake3Hasher) Size() int            { return 32 }
func (blake3Hasher) Sum(data []byte) ID {
	h := blake3.Sum256(data)
	return ID(hex.EncodeToString(h[:]))
}

// Parse validates s as a content identifier of either supported size.
func Parse(s string) (ID, error) {
	id := ID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate reports whether id is lowercase hex of a supported digest length.
func (id ID) Validate() error {
	switch len(id) {
	case 32, 64:
	default:
		return fmt.Errorf("%w: %q has length %d", ErrInvalidID, string(id), len(id))
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidID, string(id))
		}
	}
	return nil
}

func (id ID) IsZero() bool   { return id == "" }
func (id ID) String() string { return string(id) }

// Short returns an abbreviated form for display.
func (id ID) Short() string {
	if len(id) > 12 {
		return string(id[:12])
	}
	return string(id)
}
