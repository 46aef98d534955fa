package logstore

import (
	"encoding/binary"
)

// Encoding is the byte order for every on-disk and on-wire integer in the
// storage layer, matching the wire codec's framing.
var Encoding = binary.BigEndian

// RecordHeaderSize is the per-record framing overhead: an 8-byte absolute
// offset followed by a 4-byte signed payload length.
const RecordHeaderSize = 8 + 4

// Record is one entry in a partition's log: an absolute offset assigned by
// the head at append time, plus an opaque payload. The engine never
// interprets the payload; compression flags and keys, if any, live inside
// it and are the wire layer's concern (see package wire).
type Record struct {
	Offset  int64
	Payload []byte
}

func encodedRecordLen(payloadLen int) int64 {
	return int64(RecordHeaderSize + payloadLen)
}

// encodeRecord appends the wire/disk representation of r to buf and returns
// the extended slice.
func encodeRecord(buf []byte, r Record) []byte {
	header := make([]byte, RecordHeaderSize)
	Encoding.PutUint64(header[0:8], uint64(r.Offset))
	Encoding.PutUint32(header[8:12], uint32(len(r.Payload)))
	buf = append(buf, header...)
	buf = append(buf, r.Payload...)
	return buf
}

// decodeRecordHeader reads offset and payload length from a RecordHeaderSize
// byte slice without copying the payload.
func decodeRecordHeader(b []byte) (offset int64, payloadLen int32) {
	offset = int64(Encoding.Uint64(b[0:8]))
	payloadLen = int32(Encoding.Uint32(b[8:12]))
	return
}

// decodeRecordAt decodes one record starting at b[0:], returning the number
// of bytes consumed (header + payload).
func decodeRecordAt(b []byte) (Record, int64, error) {
	if len(b) < RecordHeaderSize {
		return Record{}, 0, ErrTornWrite
	}
	offset, payloadLen := decodeRecordHeader(b)
	if payloadLen < 0 {
		return Record{}, 0, ErrTornWrite
	}
	total := int64(RecordHeaderSize) + int64(payloadLen)
	if int64(len(b)) < total {
		return Record{}, 0, ErrTornWrite
	}
	payload := make([]byte, payloadLen)
	copy(payload, b[RecordHeaderSize:total])
	return Record{Offset: offset, Payload: payload}, total, nil
}
