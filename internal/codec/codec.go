// Package codec encodes stored objects as deterministic CBOR.
package codec

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// envelope always produces the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder: " + err.Error())
	}
}

// Version is the envelope layout written by this package.
const Version = 1

var ErrVersion = errors.New("unsupported envelope version")

// Envelope wraps an object's content with what the store knows about it.
// Data is the exact byte string the object id was computed from.
type Envelope struct {
	Version int    `cbor:"1,keyasint"`
	Kind    string `cbor:"2,keyasint"`
	P1      string `cbor:"3,keyasint,omitempty"`
	P2      string `cbor:"4,keyasint,omitempty"`
	Data    []byte `cbor:"5,keyasint"`
}

func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// EncodeEnvelope stamps the current version and marshals env.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	env.Version = Version
	return Marshal(env)
}

func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != Version {
		return Envelope{}, fmt.Errorf("%w: %d", ErrVersion, env.Version)
	}
	return env, nil
}
