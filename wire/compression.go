package wire

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// CompressionCodec identifies how a record's payload was compressed,
// carried in bits 0-2 of the record attribute byte. The engine never
// inspects this: a record's payload is opaque binary from append through
// fetch. Compress/Decompress exist purely as a convenience for callers on
// either side of the wire that choose to use it.
type CompressionCodec byte

const (
	CompressionNone CompressionCodec = iota
	CompressionGzip
	CompressionSnappy
	CompressionLZ4
)

func Compress(codec CompressionCodec, payload []byte) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return payload, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionSnappy:
		return snappy.Encode(nil, payload), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("wire: unknown compression codec %d", codec)
	}
}

func Decompress(codec CompressionCodec, payload []byte) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return payload, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionSnappy:
		return snappy.Decode(nil, payload)
	case CompressionLZ4:
		r := lz4.NewReader(bytes.NewReader(payload))
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("wire: unknown compression codec %d", codec)
	}
}
