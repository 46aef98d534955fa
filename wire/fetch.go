package wire

// FetchRequest is the plain fetch request: one fetch offset and byte cap
// per (topic, partition), with no record-count limit.
type FetchRequest struct {
	Topics []FetchRequestTopic
}

type FetchRequestTopic struct {
	Topic      string
	Partitions []FetchRequestPartition
}

type FetchRequestPartition struct {
	Partition   int32
	FetchOffset int64
	MaxBytes    int32
}

func (r *FetchRequest) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t.Topic)
		e.PutArrayLen(len(t.Partitions))
		for _, p := range t.Partitions {
			e.PutInt32(p.Partition)
			e.PutInt64(p.FetchOffset)
			e.PutInt32(p.MaxBytes)
		}
	}
}

func (r *FetchRequest) Decode(d *Decoder) error {
	topicCount, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]FetchRequestTopic, topicCount)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Topic, err = d.String(); err != nil {
			return err
		}
		partCount, err := d.ArrayLen()
		if err != nil {
			return err
		}
		t.Partitions = make([]FetchRequestPartition, partCount)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Partition, err = d.Int32(); err != nil {
				return err
			}
			if p.FetchOffset, err = d.Int64(); err != nil {
				return err
			}
			if p.MaxBytes, err = d.Int32(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Fetch2Request extends FetchRequest with a per-partition record-count
// limit; -1 means no limit.
type Fetch2Request struct {
	Topics []Fetch2RequestTopic
}

type Fetch2RequestTopic struct {
	Topic      string
	Partitions []Fetch2RequestPartition
}

type Fetch2RequestPartition struct {
	Partition   int32
	FetchOffset int64
	MaxBytes    int32
	Limit       int32
}

func (r *Fetch2Request) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t.Topic)
		e.PutArrayLen(len(t.Partitions))
		for _, p := range t.Partitions {
			e.PutInt32(p.Partition)
			e.PutInt64(p.FetchOffset)
			e.PutInt32(p.MaxBytes)
			e.PutInt32(p.Limit)
		}
	}
}

func (r *Fetch2Request) Decode(d *Decoder) error {
	topicCount, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]Fetch2RequestTopic, topicCount)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Topic, err = d.String(); err != nil {
			return err
		}
		partCount, err := d.ArrayLen()
		if err != nil {
			return err
		}
		t.Partitions = make([]Fetch2RequestPartition, partCount)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Partition, err = d.Int32(); err != nil {
				return err
			}
			if p.FetchOffset, err = d.Int64(); err != nil {
				return err
			}
			if p.MaxBytes, err = d.Int32(); err != nil {
				return err
			}
			if p.Limit, err = d.Int32(); err != nil {
				return err
			}
		}
	}
	return nil
}

// FileRange describes a zero-copy transfer of Length bytes starting at
// Position in the segment file at Path. It is never itself put on the
// wire: the server's response assembler resolves it into a sendfile
// transfer (or a pread+write fallback) immediately after writing the
// partition header that announces its byte length. A FileRange with
// Length == 0 must be skipped entirely rather than issued, since a zero
// length has special meaning to the underlying sendfile syscall.
type FileRange struct {
	Path     string
	Position int64
	Length   int64
}

// FetchResponse describes a fetch reply's shape. Unlike the other wire
// types, it has no single Encode: its body bytes for each partition come
// from a zero-copy file transfer interleaved with the header writes, a
// scatter/gather sequence that only the server's response assembler (which
// owns the socket and the segment file handles) can drive. FetchResponse
// exists here to document the shape that assembler follows and to host the
// per-unit header encoders it calls in order.
type FetchResponse struct {
	Topics []FetchResponseTopic
}

type FetchResponseTopic struct {
	Topic      string
	Partitions []FetchResponsePartition
}

type FetchResponsePartition struct {
	Partition     int32
	ErrorCode     int16
	HighWaterMark int64
	ByteLength    int32
	// Range is resolved by the server's response assembler into a
	// zero-copy transfer of exactly ByteLength bytes; it is never itself
	// serialized. Zero value means the partition's body is empty.
	Range FileRange
}

// EncodeTopicCount writes the top-level topic array length.
func (r *FetchResponse) EncodeTopicCount(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
}

// EncodeHeader writes this topic's name and its partition array length.
func (t *FetchResponseTopic) EncodeHeader(e *Encoder) {
	e.PutString(t.Topic)
	e.PutArrayLen(len(t.Partitions))
}

// EncodeHeader writes everything up to and including ByteLength; the
// caller must follow it with exactly ByteLength bytes before encoding the
// next partition.
func (p *FetchResponsePartition) EncodeHeader(e *Encoder) {
	e.PutInt32(p.Partition)
	e.PutInt16(p.ErrorCode)
	e.PutInt64(p.HighWaterMark)
	e.PutInt32(p.ByteLength)
}
