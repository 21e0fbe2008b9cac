package threenk

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	plain := []byte("key: \"achievement.volvo\"\nval: \"Volvo Trucks\"\n")
	for _, seed := range []byte{0, 1, 0x7F, 0xFF} {
		wrapped := Encode(plain, seed)
		if !IsWrapped(wrapped) {
			t.Fatalf("seed %d: header not recognized", seed)
		}
		got, err := Decode(wrapped)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if !bytes.Equal(got, plain) {
			t.Fatalf("seed %d: round trip differs", seed)
		}
	}
}

func TestTranscode_KeyCounterWraps(t *testing.T) {
	// A payload longer than 256 bytes forces the key byte to wrap.
	plain := bytes.Repeat([]byte{0xAA}, 600)
	got, err := Decode(Encode(plain, 200))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatal("round trip differs after key wrap")
	}
}

func TestDecode_InputUntouched(t *testing.T) {
	wrapped := Encode([]byte("abc"), 9)
	before := append([]byte(nil), wrapped...)
	if _, err := Decode(wrapped); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(wrapped, before) {
		t.Fatal("Decode modified its input")
	}
}

func TestDecode_Rejects(t *testing.T) {
	if _, err := Decode([]byte("3n")); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("short: %v", err)
	}
	if _, err := Decode([]byte("SiiNunit {}")); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("plain text: %v", err)
	}
	if IsWrapped([]byte("SiiNunit")) {
		t.Fatal("IsWrapped false positive")
	}
}

func TestEncode_EmptyPayload(t *testing.T) {
	wrapped := Encode(nil, 5)
	if len(wrapped) != headerSize {
		t.Fatalf("wrapped empty payload is %d bytes", len(wrapped))
	}
	got, err := Decode(wrapped)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %q, %v", got, err)
	}
}
