package sii

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// encryptSave builds an encrypted container around payload the way the
// game writes them, optionally deflating first.
func encryptSave(t *testing.T, payload []byte, compress bool, declared uint32) []byte {
	t.Helper()
	plain := payload
	if compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		plain = buf.Bytes()
	}

	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := make([]byte, len(plain)+pad)
	copy(padded, plain)
	for i := len(plain); i < len(padded); i++ {
		padded[i] = byte(pad)
	}

	out := make([]byte, encryptedHeaderSize+len(padded))
	binary.LittleEndian.PutUint32(out[0:4], encryptedSignature)
	iv := out[36:52]
	for i := range iv {
		iv[i] = byte(i * 7)
	}
	binary.LittleEndian.PutUint32(out[52:56], declared)

	block, err := aes.NewCipher(saveKey[:])
	if err != nil {
		t.Fatal(err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[encryptedHeaderSize:], padded)
	return out
}

func binaryPayload() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, binarySignature)
	binary.Write(&buf, binary.LittleEndian, uint32(3))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteByte(0)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	if f, err := DetectFormat(binaryPayload()); err != nil || f != FormatBinary {
		t.Fatalf("binary: %v, %v", f, err)
	}
	if f, err := DetectFormat([]byte("SiiNunit")); err != nil || f != FormatText {
		t.Fatalf("text: %v, %v", f, err)
	}
	if _, err := DetectFormat([]byte{1, 2}); !errors.Is(err, ErrUnexpectedEndOfInput) {
		t.Fatalf("short: %v", err)
	}
	if _, err := DetectFormat([]byte("PK\x03\x04....")); !errors.Is(err, ErrUnrecognizedContainer) {
		t.Fatalf("foreign: %v", err)
	}
}

func TestUnwrap_PlainPassthrough(t *testing.T) {
	payload := binaryPayload()
	out, format, err := Unwrap(payload)
	if err != nil {
		t.Fatal(err)
	}
	if format != FormatBinary || !bytes.Equal(out, payload) {
		t.Fatalf("passthrough changed payload: %v", format)
	}
}

func TestUnwrap_EncryptedCompressed(t *testing.T) {
	payload := binaryPayload()
	container := encryptSave(t, payload, true, uint32(len(payload)))
	out, format, err := Unwrap(container)
	if err != nil {
		t.Fatal(err)
	}
	if format != FormatBinary {
		t.Fatalf("format: %v", format)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("decoded payload differs")
	}
}

func TestUnwrap_EncryptedUncompressed(t *testing.T) {
	// A payload that does not start with a zlib header must skip the
	// inflate step.
	payload := binaryPayload()
	container := encryptSave(t, payload, false, 0)
	out, format, err := Unwrap(container)
	if err != nil {
		t.Fatal(err)
	}
	if format != FormatBinary || !bytes.Equal(out, payload) {
		t.Fatal("decoded payload differs")
	}
}

func TestUnwrap_UnknownSignature(t *testing.T) {
	_, _, err := Unwrap([]byte("GIF89a..."))
	if !errors.Is(err, ErrUnrecognizedContainer) {
		t.Fatalf("got %v", err)
	}
}

func TestUnwrap_CorruptCiphertext(t *testing.T) {
	container := encryptSave(t, binaryPayload(), true, 0)
	// Flipping a bit in the last block scrambles the padding.
	container[len(container)-1] ^= 0x40
	_, _, err := Unwrap(container)
	if !errors.Is(err, ErrCipher) && !errors.Is(err, ErrDecompression) && !errors.Is(err, ErrPostDecodeSignatureMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestUnwrap_TruncatedHeader(t *testing.T) {
	container := encryptSave(t, binaryPayload(), true, 0)
	_, _, err := Unwrap(container[:40])
	if !errors.Is(err, ErrUnexpectedEndOfInput) {
		t.Fatalf("got %v", err)
	}
}

func TestUnwrap_CorruptZlibStream(t *testing.T) {
	payload := binaryPayload()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(payload)
	zw.Close()
	z := buf.Bytes()
	z[len(z)-3] ^= 0xFF // damage the stream body, keep the 0x78 marker
	container := encryptSave(t, z, false, 0)
	_, _, err := Unwrap(container)
	if !errors.Is(err, ErrDecompression) {
		t.Fatalf("got %v", err)
	}
}

func TestUnwrap_DeclaredSizeMismatch(t *testing.T) {
	payload := binaryPayload()
	container := encryptSave(t, payload, true, uint32(len(payload))+5)
	_, _, err := Unwrap(container)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestUnwrap_DecodedPayloadNotSII(t *testing.T) {
	container := encryptSave(t, []byte("plain text, no signature"), true, 0)
	_, _, err := Unwrap(container)
	if !errors.Is(err, ErrPostDecodeSignatureMismatch) {
		t.Fatalf("got %v", err)
	}
}

func TestUnwrap_DecompressionLimit(t *testing.T) {
	payload := make([]byte, 4096)
	binary.LittleEndian.PutUint32(payload, binarySignature)
	container := encryptSave(t, payload, true, 0)
	_, _, err := Unwrap(container, WithLimits(Limits{MaxDecodedBytes: 64}))
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("got %v", err)
	}
}
