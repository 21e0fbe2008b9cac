package sii

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Format classifies a container by its leading signature.
type Format int

const (
	FormatBinary Format = iota + 1
	FormatText
	FormatEncrypted
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatText:
		return "text"
	case FormatEncrypted:
		return "encrypted"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// saveKey is the AES-256 key the game builds share for save encryption.
// There is one key per game version family, so it lives here as a
// constant rather than as configurable key material.
var saveKey = [32]byte{
	0x2A, 0x5F, 0xCB, 0x17, 0x91, 0xD2, 0x2F, 0xB6,
	0x02, 0x45, 0xB3, 0xD8, 0x36, 0x9E, 0xD0, 0xB2,
	0xC2, 0x73, 0x71, 0x56, 0x3F, 0xBF, 0x1F, 0x3C,
	0x9E, 0xDF, 0x6B, 0x11, 0x82, 0x5A, 0x5D, 0x0A,
}

// Encrypted container layout after the signature: a 32-byte HMAC the
// format carries but this tool does not verify, the CBC IV, and the
// declared size of the decoded payload.
const encryptedHeaderSize = 4 + 32 + 16 + 4

// DetectFormat classifies data by its fixed-position signature. Anything
// other than the three known signatures is ErrUnrecognizedContainer.
func DetectFormat(data []byte) (Format, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: %d bytes is too short for a signature", ErrUnexpectedEndOfInput, len(data))
	}
	switch binary.LittleEndian.Uint32(data) {
	case binarySignature:
		return FormatBinary, nil
	case textSignature:
		return FormatText, nil
	case encryptedSignature:
		return FormatEncrypted, nil
	}
	return 0, fmt.Errorf("%w: %02X %02X %02X %02X", ErrUnrecognizedContainer, data[0], data[1], data[2], data[3])
}

// Unwrap reduces a raw save container to a flat buffer beginning with the
// BSII or SiiN signature, reporting which of the two it is. Plain inputs
// pass through untouched; encrypted inputs are decrypted, inflated and
// re-validated. Unwrap is pure and never returns a partial result.
func Unwrap(data []byte, opts ...DecodeOption) ([]byte, Format, error) {
	cfg := decodeConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()

	format, err := DetectFormat(data)
	if err != nil {
		return nil, 0, err
	}
	if format != FormatEncrypted {
		return data, format, nil
	}

	plain, declared, err := decryptSave(data)
	if err != nil {
		return nil, 0, err
	}
	if len(plain) >= 2 && plain[0] == 0x78 {
		plain, err = inflate(plain, cfg.limits.MaxDecodedBytes)
		if err != nil {
			return nil, 0, err
		}
	}
	if declared != 0 && uint64(len(plain)) != uint64(declared) {
		return nil, 0, fmt.Errorf("%w: container declares %d bytes, decoded %d", ErrSizeMismatch, declared, len(plain))
	}

	format, err = DetectFormat(plain)
	if err != nil || format == FormatEncrypted {
		return nil, 0, fmt.Errorf("%w: wrong key or corrupt container", ErrPostDecodeSignatureMismatch)
	}
	return plain, format, nil
}

// decryptSave strips the encrypted container header and runs AES-256-CBC
// with the embedded key, returning the unpadded plaintext and the header's
// declared payload size. No plaintext heuristics: a padding failure is
// final.
func decryptSave(data []byte) ([]byte, uint32, error) {
	if len(data) < encryptedHeaderSize {
		return nil, 0, fmt.Errorf("%w: encrypted container header", ErrUnexpectedEndOfInput)
	}
	iv := data[36:52]
	declared := binary.LittleEndian.Uint32(data[52:56])
	ciphertext := data[encryptedHeaderSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, 0, fmt.Errorf("%w: ciphertext length %d", ErrCipher, len(ciphertext))
	}

	block, err := aes.NewCipher(saveKey[:])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCipher, err)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	plain, err = unpadPKCS7(plain)
	if err != nil {
		return nil, 0, err
	}
	return plain, declared, nil
}

func unpadPKCS7(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrCipher)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrCipher)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrCipher)
		}
	}
	return b[:len(b)-n], nil
}

// inflate decompresses a zlib stream, refusing to expand past max bytes.
func inflate(data []byte, max uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if uint64(len(out)) > max {
		return nil, fmt.Errorf("%w: decompressed payload exceeds %d bytes", ErrLimitExceeded, max)
	}
	return out, nil
}
