package compress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies the algorithm a frame was compressed with. Tags are
// written into every stored frame, so the values must not change.
type Tag uint8

const (
	None Tag = 0
	LZ4  Tag = 1
	Zstd Tag = 2
)

var (
	ErrUnknownTag = errors.New("unknown compression tag")
	ErrShortFrame = errors.New("compressed frame too short")

	errIncompressible = errors.New("data is incompressible")
)

func (t Tag) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseTag accepts the names used in the repository config.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTag, name)
	}
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder: " + err.Error())
	}
}

// Encode compresses data with tag and returns a self-describing frame:
//
//	tag (1 byte) | uncompressed length (uvarint) | payload
//
// Data that does not shrink is stored with tag None.
func Encode(data []byte, tag Tag) ([]byte, error) {
	payload, used, err := compress(data, tag)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, 1+binary.MaxVarintLen64+len(payload))
	frame = append(frame, byte(used))
	frame = binary.AppendUvarint(frame, uint64(len(data)))
	return append(frame, payload...), nil
}

// Decode reverses Encode.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, ErrShortFrame
	}
	tag := Tag(frame[0])
	size, n := binary.Uvarint(frame[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad length header", ErrShortFrame)
	}
	payload := frame[1+n:]

	switch tag {
	case None:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("stored frame: %d bytes, header says %d", len(payload), size)
		}
		return append([]byte(nil), payload...), nil
	case LZ4:
		out := make([]byte, size)
		read, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(read) != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return out, nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint64(len(out)) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, uint8(tag))
	}
}

// TagOf reports the algorithm a frame was written with.
func TagOf(frame []byte) (Tag, error) {
	if len(frame) < 2 {
		return 0, ErrShortFrame
	}
	return Tag(frame[0]), nil
}

func compress(data []byte, tag Tag) ([]byte, Tag, error) {
	var (
		out []byte
		err error
	)
	switch tag {
	case None:
		return data, None, nil
	case LZ4:
		out, err = compressLZ4(data)
	case Zstd:
		out = zstdEncoder.EncodeAll(data, nil)
		if len(out) >= len(data) {
			err = errIncompressible
		}
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownTag, uint8(tag))
	}
	if errors.Is(err, errIncompressible) {
		return data, None, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return out, tag, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// zero means lz4 gave up on the input
	if n == 0 || n >= len(data) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}
