package wire

import (
	"bytes"
	"testing"
)

func TestEncoderDecoderRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.PutInt8(-7)
	e.PutInt16(1234)
	e.PutInt32(-90000)
	e.PutInt64(1 << 40)
	e.PutString("hello")
	e.PutBytes([]byte{1, 2, 3})
	e.PutBytes(nil)
	e.PutArrayLen(3)
	e.PutRawBytes([]byte("raw"))

	d := NewDecoder(e.Bytes())
	if v, err := d.Int8(); err != nil || v != -7 {
		t.Fatalf("Int8: %d, %v", v, err)
	}
	if v, err := d.Int16(); err != nil || v != 1234 {
		t.Fatalf("Int16: %d, %v", v, err)
	}
	if v, err := d.Int32(); err != nil || v != -90000 {
		t.Fatalf("Int32: %d, %v", v, err)
	}
	if v, err := d.Int64(); err != nil || v != 1<<40 {
		t.Fatalf("Int64: %d, %v", v, err)
	}
	if s, err := d.String(); err != nil || s != "hello" {
		t.Fatalf("String: %q, %v", s, err)
	}
	if b, err := d.Bytes(); err != nil || !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Fatalf("Bytes: %v, %v", b, err)
	}
	if b, err := d.Bytes(); err != nil || b != nil {
		t.Fatalf("nil Bytes: %v, %v", b, err)
	}
	if n, err := d.ArrayLen(); err != nil || n != 3 {
		t.Fatalf("ArrayLen: %d, %v", n, err)
	}
	if b, err := d.RawBytes(3); err != nil || string(b) != "raw" {
		t.Fatalf("RawBytes: %q, %v", b, err)
	}
	if d.Remaining() != 0 {
		t.Fatalf("expected buffer exhausted, %d bytes remain", d.Remaining())
	}
}

func TestDecoderTruncated(t *testing.T) {
	d := NewDecoder([]byte{0, 1})
	if _, err := d.Int32(); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecoderNegativeArrayLen(t *testing.T) {
	e := NewEncoder()
	e.PutInt32(-1)
	d := NewDecoder(e.Bytes())
	if _, err := d.ArrayLen(); err != ErrNegativeSize {
		t.Fatalf("expected ErrNegativeSize, got %v", err)
	}
}

func TestDecoderStringTruncatedBody(t *testing.T) {
	e := NewEncoder()
	e.PutInt16(10)
	e.PutRawBytes([]byte("short"))
	d := NewDecoder(e.Bytes())
	if _, err := d.String(); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
