package wire

import (
	"bytes"
	"testing"
)

func TestCompressionRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("vonnegut record payload "), 64)

	for _, codec := range []CompressionCodec{CompressionNone, CompressionGzip, CompressionSnappy, CompressionLZ4} {
		compressed, err := Compress(codec, payload)
		if err != nil {
			t.Fatalf("codec %d: Compress: %v", codec, err)
		}
		got, err := Decompress(codec, compressed)
		if err != nil {
			t.Fatalf("codec %d: Decompress: %v", codec, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("codec %d: round trip mismatch", codec)
		}
	}
}

func TestCompressionUnknownCodec(t *testing.T) {
	if _, err := Compress(CompressionCodec(99), []byte("x")); err == nil {
		t.Fatal("expected error for unknown codec")
	}
	if _, err := Decompress(CompressionCodec(99), []byte("x")); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}
