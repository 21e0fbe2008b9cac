package scs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/zlib"
)

type memberSpec struct {
	hash    uint64
	content []byte
	deflate bool
	rawType uint32 // overrides the derived type when nonzero

	// index overrides for corruption tests
	sizeDelta int32
	crcDelta  uint32
}

// buildArchive lays out members followed by the index, matching the
// on-disk format.
func buildArchive(t *testing.T, members []memberSpec) []byte {
	t.Helper()
	var body bytes.Buffer
	body.Write(make([]byte, headerSize))

	type placed struct {
		memberSpec
		offset uint32
		stored uint32
	}
	out := make([]placed, 0, len(members))
	for _, m := range members {
		stored := m.content
		if m.deflate {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			if _, err := zw.Write(m.content); err != nil {
				t.Fatal(err)
			}
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}
			stored = z.Bytes()
		}
		p := placed{memberSpec: m, offset: uint32(body.Len()), stored: uint32(len(stored))}
		body.Write(stored)
		out = append(out, p)
	}

	indexOffset := uint32(body.Len())
	for _, p := range out {
		rec := make([]byte, entrySize)
		binary.LittleEndian.PutUint64(rec[0:8], p.hash)
		binary.LittleEndian.PutUint32(rec[8:12], p.offset)
		typ := p.rawType
		if typ == 0 && p.deflate {
			typ = 2
		}
		binary.LittleEndian.PutUint32(rec[16:20], typ)
		binary.LittleEndian.PutUint32(rec[20:24], crc32.ChecksumIEEE(p.content)+p.crcDelta)
		binary.LittleEndian.PutUint32(rec[24:28], uint32(int32(len(p.content))+p.sizeDelta))
		binary.LittleEndian.PutUint32(rec[28:32], p.stored)
		body.Write(rec)
	}

	b := body.Bytes()
	copy(b[0:4], archiveMagic[:])
	binary.LittleEndian.PutUint32(b[4:8], 1)
	copy(b[8:12], cityHashMarker[:])
	binary.LittleEndian.PutUint32(b[12:16], uint32(len(out)))
	binary.LittleEndian.PutUint32(b[16:20], indexOffset)
	return b
}

func TestPathHash(t *testing.T) {
	// Leading slash and backslashes normalize to the same hash.
	a := PathHash("def/achievements.sii")
	if PathHash("/def/achievements.sii") != a {
		t.Fatal("leading slash should not change the hash")
	}
	if PathHash(`def\achievements.sii`) != a {
		t.Fatal("backslashes should not change the hash")
	}
	if PathHash("def/other.sii") == a {
		t.Fatal("distinct paths should hash apart")
	}
}

func TestOpen_RejectsForeignData(t *testing.T) {
	if _, err := Open([]byte("not an archive at all")); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("got %v", err)
	}
	if _, err := Open([]byte("SCS")); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("short: %v", err)
	}
}

func TestOpen_RejectsUnknownHashMethod(t *testing.T) {
	b := buildArchive(t, nil)
	copy(b[8:12], "MD5!")
	if _, err := Open(b); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("got %v", err)
	}
}

func TestOpen_RejectsOverrunningIndex(t *testing.T) {
	b := buildArchive(t, []memberSpec{{hash: 1, content: []byte("x")}})
	binary.LittleEndian.PutUint32(b[12:16], 1000)
	if _, err := Open(b); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("got %v", err)
	}
}

func TestExtract_Stored(t *testing.T) {
	want := []byte("stored verbatim")
	b := buildArchive(t, []memberSpec{{hash: PathHash("a/b.txt"), content: want}})
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	if ar.Len() != 1 || ar.Version() != 1 {
		t.Fatalf("Len=%d Version=%d", ar.Len(), ar.Version())
	}
	got, err := ar.Extract(PathHash("a/b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q", got)
	}
	// The result must be a copy, not a window into the archive.
	got[0] ^= 0xFF
	again, err := ar.Extract(PathHash("a/b.txt"))
	if err != nil || !bytes.Equal(again, want) {
		t.Fatalf("extraction aliased the archive buffer: %q, %v", again, err)
	}
}

func TestExtract_Deflated(t *testing.T) {
	want := bytes.Repeat([]byte("compressible "), 200)
	b := buildArchive(t, []memberSpec{{hash: 7, content: want, deflate: true}})
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ar.Extract(7)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("inflated content differs")
	}
}

func TestExtract_NotFound(t *testing.T) {
	b := buildArchive(t, []memberSpec{{hash: 7, content: []byte("x")}})
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.Extract(8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestExtract_DirectoryUnsupported(t *testing.T) {
	b := buildArchive(t, []memberSpec{{hash: 7, content: []byte("dir listing"), rawType: 1}})
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := ar.Entry(7)
	if !ok || e.Kind != StoredDirectory {
		t.Fatalf("entry: %#v, %v", e, ok)
	}
	if _, err := ar.Extract(7); !errors.Is(err, ErrUnsupportedEntry) {
		t.Fatalf("got %v", err)
	}
}

func TestOpen_RejectsUnknownEntryType(t *testing.T) {
	b := buildArchive(t, []memberSpec{{hash: 7, content: []byte("x"), rawType: 9}})
	if _, err := Open(b); !errors.Is(err, ErrUnsupportedEntry) {
		t.Fatalf("got %v", err)
	}
}

func TestExtract_SizeMismatch(t *testing.T) {
	b := buildArchive(t, []memberSpec{{hash: 7, content: []byte("abcdef"), deflate: true, sizeDelta: 2}})
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.Extract(7); !errors.Is(err, ErrSizeMismatch) && !errors.Is(err, ErrDecompression) {
		t.Fatalf("got %v", err)
	}
}

func TestExtract_CorruptDeflateStream(t *testing.T) {
	b := buildArchive(t, []memberSpec{{hash: 7, content: bytes.Repeat([]byte("y"), 100), deflate: true}})
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := ar.Entry(7)
	b[e.Offset] ^= 0xFF // break the zlib header
	if _, err := ar.Extract(7); !errors.Is(err, ErrDecompression) {
		t.Fatalf("got %v", err)
	}
}

func TestExtract_ChecksumVerification(t *testing.T) {
	content := []byte("checked content")
	spec := memberSpec{hash: 7, content: content, crcDelta: 1}
	b := buildArchive(t, []memberSpec{spec})

	// Without verification the bad CRC goes unnoticed.
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.Extract(7); err != nil {
		t.Fatalf("unverified extract: %v", err)
	}

	ar, err = Open(b, WithChecksumVerification())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.Extract(7); !errors.Is(err, ErrChecksum) {
		t.Fatalf("got %v", err)
	}
}

func TestExtractAll(t *testing.T) {
	members := []memberSpec{
		{hash: 1, content: []byte("one")},
		{hash: 2, content: bytes.Repeat([]byte("two "), 50), deflate: true},
		{hash: 3, content: []byte("three")},
	}
	b := buildArchive(t, members)
	ar, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ar.ExtractAll([]uint64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results", len(got))
	}
	for _, m := range members {
		if !bytes.Equal(got[m.hash], m.content) {
			t.Fatalf("member %d differs", m.hash)
		}
	}

	if _, err := ar.ExtractAll([]uint64{1, 99}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing member: %v", err)
	}
}
