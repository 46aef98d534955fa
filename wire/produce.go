package wire

// ProduceRequest carries one batch of record payloads per (topic,
// partition). The engine never interprets a payload; compression and key
// metadata, if present, live inside it.
type ProduceRequest struct {
	Topics []ProduceTopic
}

type ProduceTopic struct {
	Topic      string
	Partitions []ProducePartition
}

type ProducePartition struct {
	Partition int32
	Records   [][]byte
}

func (r *ProduceRequest) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t.Topic)
		e.PutArrayLen(len(t.Partitions))
		for _, p := range t.Partitions {
			e.PutInt32(p.Partition)
			e.PutArrayLen(len(p.Records))
			for _, rec := range p.Records {
				e.PutBytes(rec)
			}
		}
	}
}

func (r *ProduceRequest) Decode(d *Decoder) error {
	topicCount, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]ProduceTopic, topicCount)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Topic, err = d.String(); err != nil {
			return err
		}
		partCount, err := d.ArrayLen()
		if err != nil {
			return err
		}
		t.Partitions = make([]ProducePartition, partCount)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Partition, err = d.Int32(); err != nil {
				return err
			}
			recCount, err := d.ArrayLen()
			if err != nil {
				return err
			}
			p.Records = make([][]byte, recCount)
			for k := range p.Records {
				if p.Records[k], err = d.Bytes(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ProduceResponse reports, per (topic, partition), the error code and the
// offset of the last record accepted (-1 on failure).
type ProduceResponse struct {
	Topics []ProduceTopicResponse
}

type ProduceTopicResponse struct {
	Topic      string
	Partitions []ProducePartitionResponse
}

type ProducePartitionResponse struct {
	Partition    int32
	ErrorCode    int16
	OffsetOfLast int64
}

func (r *ProduceResponse) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t.Topic)
		e.PutArrayLen(len(t.Partitions))
		for _, p := range t.Partitions {
			e.PutInt32(p.Partition)
			e.PutInt16(p.ErrorCode)
			e.PutInt64(p.OffsetOfLast)
		}
	}
}

func (r *ProduceResponse) Decode(d *Decoder) error {
	topicCount, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]ProduceTopicResponse, topicCount)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Topic, err = d.String(); err != nil {
			return err
		}
		partCount, err := d.ArrayLen()
		if err != nil {
			return err
		}
		t.Partitions = make([]ProducePartitionResponse, partCount)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Partition, err = d.Int32(); err != nil {
				return err
			}
			if p.ErrorCode, err = d.Int16(); err != nil {
				return err
			}
			if p.OffsetOfLast, err = d.Int64(); err != nil {
				return err
			}
		}
	}
	return nil
}
