// Package sii decodes SII unit files, the serialization format used by the
// truck simulator games for saves and definition data.
//
// A save file on disk is one of three containers, distinguished by the
// four-byte signature at offset zero:
//   - "BSII": the self-describing binary form, decoded by [Decode] or
//     streamed with [Parser]
//   - "SiiN": the textual form, parsed by [TextParser]
//   - "ScsC": the binary form wrapped in AES-256-CBC and zlib
//
// [Unwrap] reduces any of the three to a flat BSII or SiiN buffer. The
// binary form is a stream of blocks: structure definitions (an identifier,
// a unit name and an ordered field list) followed by instances that
// reference a definition by identifier and carry one value per declared
// field. Definitions always precede the instances that use them, and the
// instance order in the file is preserved in the decoded [Document].
//
// The package performs no file I/O; callers hand in byte slices. All
// length and count prefixes read from the input are checked against the
// remaining buffer before any allocation, so a truncated or hostile file
// fails with an error instead of exhausting memory.
package sii
