// Package scs indexes and extracts member files from the game's hash-
// addressed asset archives.
//
// An archive carries no readable directory: entries are keyed by the
// CityHash64 of their archive path, and this package deliberately keeps
// it that way. Callers look entries up by hashes they already know
// (derive them from known paths with [PathHash]); no hash-to-path reverse
// mapping is attempted, and directory-listing entries are not understood.
//
// The package performs no file I/O; callers hand [Open] the whole archive
// as a byte slice. An opened [Archive] is immutable and safe for
// concurrent extraction.
package scs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"runtime"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidArchive   = errors.New("scs: not an SCS archive")
	ErrNotFound         = errors.New("scs: no entry with that hash")
	ErrUnsupportedEntry = errors.New("scs: unsupported entry type")
	ErrSizeMismatch     = errors.New("scs: entry size does not match declared size")
	ErrChecksum         = errors.New("scs: entry checksum mismatch")
	ErrDecompression    = errors.New("scs: corrupt compressed entry")
)

var (
	archiveMagic   = [4]byte{'S', 'C', 'S', '#'}
	cityHashMarker = [4]byte{'C', 'I', 'T', 'Y'}
)

const (
	headerSize = 4 + 4 + 4 + 4 + 4 // magic, version, hash method, count, index offset
	entrySize  = 32
)

// EntryKind classifies an index entry. Directory kinds exist in the
// format but their payload layout is not implemented here; extracting
// one fails with ErrUnsupportedEntry.
type EntryKind int

const (
	StoredFile EntryKind = iota + 1
	StoredDirectory
	DeflatedFile
	DeflatedDirectory
)

func entryKind(raw uint32) (EntryKind, error) {
	switch raw {
	case 0, 4:
		return StoredFile, nil
	case 1, 5:
		return StoredDirectory, nil
	case 2, 6:
		return DeflatedFile, nil
	case 3, 7:
		return DeflatedDirectory, nil
	}
	return 0, fmt.Errorf("%w: type id %d", ErrUnsupportedEntry, raw)
}

// Entry is one index record: where a member lives in the archive and how
// it is stored.
type Entry struct {
	Hash       uint64
	Offset     uint32
	Kind       EntryKind
	CRC32      uint32
	Size       uint32 // size after decompression
	StoredSize uint32 // size as stored in the archive
}

// Archive is an opened, immutable archive index over a byte buffer.
type Archive struct {
	data      []byte
	entries   map[uint64]Entry
	version   uint32
	verifyCRC bool
}

type Option func(*Archive)

// WithChecksumVerification makes every extraction verify the entry's
// CRC32 over the extracted bytes.
func WithChecksumVerification() Option {
	return func(a *Archive) { a.verifyCRC = true }
}

// Open parses the archive header and index. Structural problems (bad
// magic, unknown hash method, an index that overruns the buffer) are
// fatal here; problems inside individual members are not detected until
// they are extracted.
func Open(data []byte, opts ...Option) (*Archive, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrInvalidArchive, len(data))
	}
	if !bytes.Equal(data[0:4], archiveMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic % X", ErrInvalidArchive, data[0:4])
	}
	// The word after the magic looks like a format version; the target
	// game never varies it, so it is carried but not validated.
	version := binary.LittleEndian.Uint32(data[4:8])
	if !bytes.Equal(data[8:12], cityHashMarker[:]) {
		return nil, fmt.Errorf("%w: unknown hash method % X", ErrInvalidArchive, data[8:12])
	}
	count := binary.LittleEndian.Uint32(data[12:16])
	indexOffset := binary.LittleEndian.Uint32(data[16:20])

	indexEnd := int64(indexOffset) + int64(count)*entrySize
	if int64(indexOffset) < headerSize || indexEnd > int64(len(data)) {
		return nil, fmt.Errorf("%w: index of %d entries at %d overruns %d bytes", ErrInvalidArchive, count, indexOffset, len(data))
	}

	a := &Archive{data: data, version: version, entries: make(map[uint64]Entry, count)}
	for _, opt := range opts {
		opt(a)
	}
	for i := uint32(0); i < count; i++ {
		rec := data[int(indexOffset)+int(i)*entrySize:]
		kind, err := entryKind(binary.LittleEndian.Uint32(rec[16:20]))
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		e := Entry{
			Hash:       binary.LittleEndian.Uint64(rec[0:8]),
			Offset:     binary.LittleEndian.Uint32(rec[8:12]),
			Kind:       kind,
			CRC32:      binary.LittleEndian.Uint32(rec[20:24]),
			Size:       binary.LittleEndian.Uint32(rec[24:28]),
			StoredSize: binary.LittleEndian.Uint32(rec[28:32]),
		}
		a.entries[e.Hash] = e
	}
	return a, nil
}

// Len reports the number of index entries.
func (a *Archive) Len() int { return len(a.entries) }

// Version reports the archive's header version word.
func (a *Archive) Version() uint32 { return a.version }

// Entry looks up the index record for hash without extracting it.
func (a *Archive) Entry(hash uint64) (Entry, bool) {
	e, ok := a.entries[hash]
	return e, ok
}

// Extract returns the member bytes for hash. A missing hash is
// ErrNotFound, an expected negative rather than a decode failure. Extraction
// errors are scoped to this call; the index stays valid for other
// hashes. The returned slice is freshly allocated and owned by the
// caller.
func (a *Archive) Extract(hash uint64) ([]byte, error) {
	e, ok := a.entries[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %016X", ErrNotFound, hash)
	}
	switch e.Kind {
	case StoredFile, DeflatedFile:
	default:
		return nil, fmt.Errorf("%w: directory semantics are not implemented", ErrUnsupportedEntry)
	}

	end := int64(e.Offset) + int64(e.StoredSize)
	if end > int64(len(a.data)) {
		return nil, fmt.Errorf("%w: entry %016X at %d+%d overruns %d bytes", ErrSizeMismatch, hash, e.Offset, e.StoredSize, len(a.data))
	}
	stored := a.data[e.Offset:end]

	var out []byte
	if e.Kind == StoredFile {
		if e.StoredSize != e.Size {
			return nil, fmt.Errorf("%w: stored %d != raw %d for uncompressed entry", ErrSizeMismatch, e.StoredSize, e.Size)
		}
		out = make([]byte, len(stored))
		copy(out, stored)
	} else {
		zr, err := zlib.NewReader(bytes.NewReader(stored))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		defer zr.Close()
		out, err = io.ReadAll(io.LimitReader(zr, int64(e.Size)+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		if len(out) != int(e.Size) {
			return nil, fmt.Errorf("%w: inflated %d bytes, entry declares %d", ErrSizeMismatch, len(out), e.Size)
		}
	}

	if a.verifyCRC && crc32.ChecksumIEEE(out) != e.CRC32 {
		return nil, fmt.Errorf("%w: entry %016X", ErrChecksum, hash)
	}
	return out, nil
}

// ExtractAll extracts every hash concurrently. The index is immutable,
// so the extractions are independent; they are sharded across an
// errgroup bounded by GOMAXPROCS. Any failure, including a missing
// hash, fails the whole call.
func (a *Archive) ExtractAll(hashes []uint64) (map[uint64][]byte, error) {
	results := make([][]byte, len(hashes))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, h := range hashes {
		i, h := i, h
		g.Go(func() error {
			b, err := a.Extract(h)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[uint64][]byte, len(hashes))
	for i, h := range hashes {
		out[h] = results[i]
	}
	return out, nil
}
