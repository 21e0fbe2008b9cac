package sii

import (
	"encoding/binary"
	"fmt"
	"math"
)

// reader walks a byte buffer with explicit bounds checks. Every length or
// count prefix is validated against the remaining bytes before it is used
// to allocate or index.
type reader struct {
	buf    []byte
	off    int
	limits Limits
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) need(n int) error {
	if n < 0 || n > r.remaining() {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrUnexpectedEndOfInput, n, r.off, r.remaining())
	}
	return nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

// string reads a u32 length prefix followed by that many bytes.
func (r *reader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if n > r.limits.MaxStringLen {
		return "", fmt.Errorf("%w: string length %d", ErrLimitExceeded, n)
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// arrayLen reads a u32 element count and rejects counts that cannot fit in
// the remaining input given a minimum element width.
func (r *reader) arrayLen(minElem int) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if n > r.limits.MaxArrayLen {
		return 0, fmt.Errorf("%w: array length %d", ErrLimitExceeded, n)
	}
	if int64(n)*int64(minElem) > int64(r.remaining()) {
		return 0, fmt.Errorf("%w: %d elements of at least %d bytes exceed %d remaining", ErrUnexpectedEndOfInput, n, minElem, r.remaining())
	}
	return int(n), nil
}

func (r *reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}
