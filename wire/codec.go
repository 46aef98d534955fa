// Package wire implements the Kafka-compatible length-prefixed wire
// framing: request/response envelopes, the opcode set, and the
// produce/fetch/metadata/replicate payload codecs.
package wire

import (
	"encoding/binary"
	"errors"
)

var byteOrder = binary.BigEndian

var (
	ErrTruncated    = errors.New("wire: buffer truncated")
	ErrNegativeSize = errors.New("wire: negative length field")
)

// Encoder accumulates a packet's bytes. Method names mirror the decoder's
// so call sites read symmetrically: PutInt32 pairs with Int32, PutString
// with String, and so on.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

func (e *Encoder) Bytes() []byte { return e.buf }
func (e *Encoder) Len() int      { return len(e.buf) }

func (e *Encoder) PutInt8(v int8) {
	e.buf = append(e.buf, byte(v))
}

func (e *Encoder) PutInt16(v int16) {
	var b [2]byte
	byteOrder.PutUint16(b[:], uint16(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutInt32(v int32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutInt64(v int64) {
	var b [8]byte
	byteOrder.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
}

// PutString writes a Kafka-style int16-length-prefixed string.
func (e *Encoder) PutString(s string) {
	e.PutInt16(int16(len(s)))
	e.buf = append(e.buf, s...)
}

// PutBytes writes a Kafka-style int32-length-prefixed byte string. A nil
// slice is encoded with length -1.
func (e *Encoder) PutBytes(b []byte) {
	if b == nil {
		e.PutInt32(-1)
		return
	}
	e.PutInt32(int32(len(b)))
	e.buf = append(e.buf, b...)
}

// PutRawBytes appends b with no length prefix, for payloads whose length is
// conveyed elsewhere in the envelope.
func (e *Encoder) PutRawBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// PutArrayLen writes an i32 element count ahead of an array's elements.
func (e *Encoder) PutArrayLen(n int) {
	e.PutInt32(int32(n))
}

// Decoder reads sequentially from a fixed buffer.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

func (d *Decoder) require(n int) error {
	if d.Remaining() < n {
		return ErrTruncated
	}
	return nil
}

func (d *Decoder) Int8() (int8, error) {
	if err := d.require(1); err != nil {
		return 0, err
	}
	v := int8(d.buf[d.off])
	d.off++
	return v, nil
}

func (d *Decoder) Int16() (int16, error) {
	if err := d.require(2); err != nil {
		return 0, err
	}
	v := int16(byteOrder.Uint16(d.buf[d.off:]))
	d.off += 2
	return v, nil
}

func (d *Decoder) Int32() (int32, error) {
	if err := d.require(4); err != nil {
		return 0, err
	}
	v := int32(byteOrder.Uint32(d.buf[d.off:]))
	d.off += 4
	return v, nil
}

func (d *Decoder) Int64() (int64, error) {
	if err := d.require(8); err != nil {
		return 0, err
	}
	v := int64(byteOrder.Uint64(d.buf[d.off:]))
	d.off += 8
	return v, nil
}

func (d *Decoder) String() (string, error) {
	n, err := d.Int16()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrNegativeSize
	}
	if err := d.require(int(n)); err != nil {
		return "", err
	}
	s := string(d.buf[d.off : d.off+int(n)])
	d.off += int(n)
	return s, nil
}

// Bytes reads an int32-length-prefixed byte string; length -1 decodes to nil.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Int32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	if err := d.require(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, d.buf[d.off:d.off+int(n)])
	d.off += int(n)
	return b, nil
}

// ArrayLen reads an i32 element count.
func (d *Decoder) ArrayLen() (int, error) {
	n, err := d.Int32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrNegativeSize
	}
	return int(n), nil
}

// RawBytes reads exactly n unprefixed bytes.
func (d *Decoder) RawBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if err := d.require(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, d.buf[d.off:d.off+n])
	d.off += n
	return b, nil
}
