package sii

import "errors"

var (
	ErrUnrecognizedContainer       = errors.New("sii: unrecognized container signature")
	ErrPostDecodeSignatureMismatch = errors.New("sii: decoded payload has no SII signature")
	ErrCipher                      = errors.New("sii: decryption failed")
	ErrDecompression               = errors.New("sii: corrupt compressed stream")
	ErrUnsupportedVersion          = errors.New("sii: unsupported format version")
	ErrUnknownFieldType            = errors.New("sii: unknown field type")
	ErrUndefinedStructureReference = errors.New("sii: instance references undeclared structure")
	ErrMissingOrdinal              = errors.New("sii: ordinal value has no table entry")
	ErrDuplicateDefinition         = errors.New("sii: duplicate structure definition")
	ErrUnexpectedEndOfInput        = errors.New("sii: unexpected end of input")
	ErrSizeMismatch                = errors.New("sii: declared size does not match payload")
	ErrLimitExceeded               = errors.New("sii: limit exceeded")
	ErrSyntax                      = errors.New("sii: syntax error")
	ErrMissingField                = errors.New("sii: missing field")
	ErrFieldType                   = errors.New("sii: mismatched field type")
)
