// Package threenk implements the 3nK transform, the fixed XOR scheme the
// game wraps its localization unit files in. It is obfuscation rather
// than encryption: a five-byte header carries a keystream seed, and the
// payload is XORed with a byte counter starting at that seed. The
// transform is its own inverse.
package threenk

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// signature is "3nK" followed by an 0x01 version byte, read as a
// little-endian word.
const signature uint32 = 0x014B6E33

const headerSize = 5

var ErrBadSignature = errors.New("threenk: not a 3nK payload")

// IsWrapped reports whether data begins with the 3nK header.
func IsWrapped(data []byte) bool {
	return len(data) >= headerSize && binary.LittleEndian.Uint32(data) == signature
}

// Decode strips the header and returns the transcoded payload. The input
// is never modified. A wrong signature is an error: the transform is
// only ever applied to data that declares it.
func Decode(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrBadSignature, len(data))
	}
	if binary.LittleEndian.Uint32(data) != signature {
		return nil, fmt.Errorf("%w: bad signature % X", ErrBadSignature, data[0:4])
	}
	seed := data[4]
	out := make([]byte, len(data)-headerSize)
	transcode(out, data[headerSize:], seed)
	return out, nil
}

// Encode wraps data in a 3nK header with the given seed.
func Encode(data []byte, seed byte) []byte {
	out := make([]byte, headerSize+len(data))
	binary.LittleEndian.PutUint32(out, signature)
	out[4] = seed
	transcode(out[headerSize:], data, seed)
	return out
}

func transcode(dst, src []byte, seed byte) {
	key := seed
	for i, b := range src {
		dst[i] = b ^ key
		key++
	}
}
