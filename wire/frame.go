package wire

import (
	"io"
)

// FrameSizeLen is the width of the length prefix on every request and
// response frame.
const FrameSizeLen = 4

// ReadFrame reads one length-prefixed frame from r: a 4-byte big-endian
// size N followed by N bytes. The returned slice holds only the N body
// bytes, the size prefix already consumed.
func ReadFrame(r io.Reader) ([]byte, error) {
	var sizeBuf [FrameSizeLen]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := byteOrder.Uint32(sizeBuf[:])
	if size == 0 {
		return nil, nil
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// WriteFrame writes body to w prefixed with its big-endian length.
func WriteFrame(w io.Writer, body []byte) error {
	if err := WriteFrameSize(w, uint32(len(body))); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

// WriteFrameSize writes just the 4-byte length prefix, for callers (the
// fetch response assembler) that then write the frame's body themselves
// as a scatter/gather sequence rather than a single buffer.
func WriteFrameSize(w io.Writer, size uint32) error {
	var sizeBuf [FrameSizeLen]byte
	byteOrder.PutUint32(sizeBuf[:], size)
	_, err := w.Write(sizeBuf[:])
	return err
}
