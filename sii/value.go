package sii

import (
	"fmt"
	"strings"
)

// Value is one decoded field value. The dynamic type is determined by the
// declared field type code:
//
//	string, []string, Token, []Token, float32, []float32,
//	Vec2, Vec3, []Vec3, Vec3i, []Vec3i, Vec4, []Vec4,
//	Placement, []Placement, int32, []int32, uint32, []uint32,
//	uint16, []uint16, int64, []int64, uint64, []uint64,
//	bool, []bool, ID, []ID
//
// Ordinal-string fields decode as string.
type Value any

// Fixed-length float vectors.
type (
	Vec2      [2]float32
	Vec3      [3]float32
	Vec4      [4]float32
	Placement [8]float32
	Vec3i     [3]int32
)

// tokenAlphabet is the radix-38 alphabet for packed identifiers; digit
// value zero terminates the string.
const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz_"

// Token is a short identifier (up to 12 characters of [0-9a-z_]) packed
// radix-38 into a single word, least significant character first.
type Token uint64

func (t Token) String() string {
	var b strings.Builder
	for v := uint64(t); v > 0; v /= 38 {
		r := v % 38
		if r == 0 {
			break
		}
		b.WriteByte(tokenAlphabet[r-1])
	}
	return b.String()
}

// ParseToken packs s into a Token. Characters are folded to lower case.
func ParseToken(s string) (Token, error) {
	if len(s) > 12 {
		return 0, fmt.Errorf("%w: %q is too long for a token", ErrSyntax, s)
	}
	var out uint64
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		idx := strings.IndexByte(tokenAlphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("%w: unexpected %q in token", ErrSyntax, c)
		}
		out = out*38 + uint64(idx) + 1
	}
	return Token(out), nil
}

// ID names a unit. A named ID is a dot-separated sequence of token parts;
// a nameless ID is a single raw word assigned by the game. IDs are opaque
// references: decoding never chases them, lookups happen against a
// Document on demand.
type ID struct {
	parts    []uint64
	nameless bool
}

func NamelessID(v uint64) ID {
	return ID{parts: []uint64{v}, nameless: true}
}

func NamedID(parts ...uint64) ID {
	return ID{parts: parts}
}

func (id ID) Nameless() bool { return id.nameless }

// Part returns the decoded token at index i; negative indexes count from
// the end. Nameless IDs have no string parts.
func (id ID) Part(i int) (string, bool) {
	if id.nameless {
		return "", false
	}
	if i < 0 {
		i += len(id.parts)
	}
	if i < 0 || i >= len(id.parts) {
		return "", false
	}
	return Token(id.parts[i]).String(), true
}

func (id ID) String() string {
	if id.nameless {
		var raw uint64
		if len(id.parts) > 0 {
			raw = id.parts[0]
		}
		var b strings.Builder
		b.WriteString("_nameless")
		for i := 0; i < 8; i += 2 {
			lo := byte(raw >> (8 * i))
			hi := byte(raw >> (8 * (i + 1)))
			fmt.Fprintf(&b, ".%x%02x", lo, hi)
		}
		return b.String()
	}
	out := make([]string, len(id.parts))
	for i, p := range id.parts {
		out[i] = Token(p).String()
	}
	return strings.Join(out, ".")
}

// ParseID parses a named ID like "company.volatile.renat.riga". A leading
// dot is permitted (it encodes an empty first part, as the game's global
// unit names do). Nameless IDs cannot be parsed back from their string
// form.
func ParseID(s string) (ID, error) {
	if strings.HasPrefix(s, "_nameless") {
		return ID{}, fmt.Errorf("%w: cannot parse nameless ID %q", ErrSyntax, s)
	}
	if s == "" {
		return ID{}, fmt.Errorf("%w: empty ID", ErrSyntax)
	}
	pieces := strings.Split(s, ".")
	parts := make([]uint64, len(pieces))
	for i, p := range pieces {
		tok, err := ParseToken(p)
		if err != nil {
			return ID{}, err
		}
		parts[i] = uint64(tok)
	}
	return ID{parts: parts}, nil
}

func (id ID) Equal(other ID) bool {
	if id.nameless != other.nameless || len(id.parts) != len(other.parts) {
		return false
	}
	for i := range id.parts {
		if id.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

// Field returns the named field of an instance as type T.
func Field[T any](in *Instance, name string) (T, error) {
	var zero T
	v, ok := in.Fields[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrFieldType, name, v)
	}
	return t, nil
}
