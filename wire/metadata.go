package wire

// MetadataRequest asks for the chain routing of a set of topics (the
// "topics" opcode is the same request/response shape, used when the
// caller wants the dense node-id view without the broader metadata call's
// other fields).
type MetadataRequest struct {
	Topics []string
}

func (r *MetadataRequest) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t)
	}
}

func (r *MetadataRequest) Decode(d *Decoder) error {
	n, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]string, n)
	for i := range r.Topics {
		if r.Topics[i], err = d.String(); err != nil {
			return err
		}
	}
	return nil
}

// MetadataResponse maps each requested topic to the node ids of its
// chain's head and tail, and separately lists every node's address dense
// within this response's id space. A requested topic with no matching
// chain, or with no partition on the answering node, is simply omitted,
// which callers rely on to probe existence.
type MetadataResponse struct {
	Nodes  []MetadataNode
	Topics []MetadataTopic
}

type MetadataNode struct {
	NodeID int32
	Host   string
	Port   int32
}

type MetadataTopic struct {
	Topic      string
	Partitions []MetadataPartition
}

type MetadataPartition struct {
	Partition int32
	HeadID    int32
	TailID    int32
}

func (r *MetadataResponse) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Nodes))
	for _, n := range r.Nodes {
		e.PutInt32(n.NodeID)
		e.PutString(n.Host)
		e.PutInt32(n.Port)
	}
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t.Topic)
		e.PutArrayLen(len(t.Partitions))
		for _, p := range t.Partitions {
			e.PutInt32(p.Partition)
			e.PutInt32(p.HeadID)
			e.PutInt32(p.TailID)
		}
	}
}

func (r *MetadataResponse) Decode(d *Decoder) error {
	nodeCount, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Nodes = make([]MetadataNode, nodeCount)
	for i := range r.Nodes {
		n := &r.Nodes[i]
		if n.NodeID, err = d.Int32(); err != nil {
			return err
		}
		if n.Host, err = d.String(); err != nil {
			return err
		}
		if n.Port, err = d.Int32(); err != nil {
			return err
		}
	}

	topicCount, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]MetadataTopic, topicCount)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Topic, err = d.String(); err != nil {
			return err
		}
		partCount, err := d.ArrayLen()
		if err != nil {
			return err
		}
		t.Partitions = make([]MetadataPartition, partCount)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Partition, err = d.Int32(); err != nil {
				return err
			}
			if p.HeadID, err = d.Int32(); err != nil {
				return err
			}
			if p.TailID, err = d.Int32(); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnsureRequest and DeleteTopicRequest share one shape (a list of topics,
// each with its partition ids) but are kept as distinct types since their
// opcodes differ.
type EnsureRequest struct {
	Topics []EnsureTopic
}

type EnsureTopic struct {
	Topic      string
	Partitions []int32
}

func (r *EnsureRequest) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t.Topic)
		e.PutArrayLen(len(t.Partitions))
		for _, p := range t.Partitions {
			e.PutInt32(p)
		}
	}
}

func (r *EnsureRequest) Decode(d *Decoder) error {
	n, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]EnsureTopic, n)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Topic, err = d.String(); err != nil {
			return err
		}
		pc, err := d.ArrayLen()
		if err != nil {
			return err
		}
		t.Partitions = make([]int32, pc)
		for j := range t.Partitions {
			if t.Partitions[j], err = d.Int32(); err != nil {
				return err
			}
		}
	}
	return nil
}

type DeleteTopicRequest struct {
	Topics []EnsureTopic
}

func (r *DeleteTopicRequest) Encode(e *Encoder) { (&EnsureRequest{Topics: r.Topics}).Encode(e) }
func (r *DeleteTopicRequest) Decode(d *Decoder) error {
	inner := &EnsureRequest{}
	if err := inner.Decode(d); err != nil {
		return err
	}
	r.Topics = inner.Topics
	return nil
}

// SimpleTopicResponse is the reply to both ensure_topic and delete_topic:
// a per-(topic,partition) error code with no other payload.
type SimpleTopicResponse struct {
	Topics []SimpleTopicResult
}

type SimpleTopicResult struct {
	Topic      string
	Partitions []SimplePartitionResult
}

type SimplePartitionResult struct {
	Partition int32
	ErrorCode int16
}

func (r *SimpleTopicResponse) Encode(e *Encoder) {
	e.PutArrayLen(len(r.Topics))
	for _, t := range r.Topics {
		e.PutString(t.Topic)
		e.PutArrayLen(len(t.Partitions))
		for _, p := range t.Partitions {
			e.PutInt32(p.Partition)
			e.PutInt16(p.ErrorCode)
		}
	}
}

func (r *SimpleTopicResponse) Decode(d *Decoder) error {
	n, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Topics = make([]SimpleTopicResult, n)
	for i := range r.Topics {
		t := &r.Topics[i]
		if t.Topic, err = d.String(); err != nil {
			return err
		}
		pc, err := d.ArrayLen()
		if err != nil {
			return err
		}
		t.Partitions = make([]SimplePartitionResult, pc)
		for j := range t.Partitions {
			p := &t.Partitions[j]
			if p.Partition, err = d.Int32(); err != nil {
				return err
			}
			if p.ErrorCode, err = d.Int16(); err != nil {
				return err
			}
		}
	}
	return nil
}
