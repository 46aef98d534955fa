package wire

// ReplicateRequest carries one batch of records, already offset-stamped by
// the head, from one chain hop to the next.
type ReplicateRequest struct {
	Topic             string
	Partition         int32
	ExpectedStartOffset int64
	Records           []ReplicateRecord
}

type ReplicateRecord struct {
	Offset  int64
	Payload []byte
}

func (r *ReplicateRequest) Encode(e *Encoder) {
	e.PutString(r.Topic)
	e.PutInt32(r.Partition)
	e.PutInt64(r.ExpectedStartOffset)
	e.PutArrayLen(len(r.Records))
	for _, rec := range r.Records {
		e.PutInt64(rec.Offset)
		e.PutBytes(rec.Payload)
	}
}

func (r *ReplicateRequest) Decode(d *Decoder) error {
	var err error
	if r.Topic, err = d.String(); err != nil {
		return err
	}
	if r.Partition, err = d.Int32(); err != nil {
		return err
	}
	if r.ExpectedStartOffset, err = d.Int64(); err != nil {
		return err
	}
	n, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.Records = make([]ReplicateRecord, n)
	for i := range r.Records {
		rec := &r.Records[i]
		if rec.Offset, err = d.Int64(); err != nil {
			return err
		}
		if rec.Payload, err = d.Bytes(); err != nil {
			return err
		}
	}
	return nil
}

// ReplicateResponse is the upstream reply to a replicate call: success or
// write-repair carrying the records the sender is missing, starting at
// RepairFromOffset.
type ReplicateResponse struct {
	Partition        int32
	ErrorCode        int16
	OffsetOfLast     int64
	RepairFromOffset int64
	RepairRecords    []ReplicateRecord
}

func (r *ReplicateResponse) Encode(e *Encoder) {
	e.PutInt32(r.Partition)
	e.PutInt16(r.ErrorCode)
	e.PutInt64(r.OffsetOfLast)
	if r.ErrorCode != WriteRepair {
		return
	}
	e.PutInt64(r.RepairFromOffset)
	e.PutArrayLen(len(r.RepairRecords))
	for _, rec := range r.RepairRecords {
		e.PutInt64(rec.Offset)
		e.PutBytes(rec.Payload)
	}
}

func (r *ReplicateResponse) Decode(d *Decoder) error {
	var err error
	if r.Partition, err = d.Int32(); err != nil {
		return err
	}
	if r.ErrorCode, err = d.Int16(); err != nil {
		return err
	}
	if r.OffsetOfLast, err = d.Int64(); err != nil {
		return err
	}
	if r.ErrorCode != WriteRepair {
		return nil
	}
	if r.RepairFromOffset, err = d.Int64(); err != nil {
		return err
	}
	n, err := d.ArrayLen()
	if err != nil {
		return err
	}
	r.RepairRecords = make([]ReplicateRecord, n)
	for i := range r.RepairRecords {
		rec := &r.RepairRecords[i]
		if rec.Offset, err = d.Int64(); err != nil {
			return err
		}
		if rec.Payload, err = d.Bytes(); err != nil {
			return err
		}
	}
	return nil
}
