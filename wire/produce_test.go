package wire

import (
	"reflect"
	"testing"
)

func TestProduceRequestRoundTrip(t *testing.T) {
	req := &ProduceRequest{
		Topics: []ProduceTopic{
			{
				Topic: "orders",
				Partitions: []ProducePartition{
					{Partition: 0, Records: [][]byte{[]byte("a"), []byte("b")}},
					{Partition: 1, Records: [][]byte{[]byte("c")}},
				},
			},
		},
	}
	e := NewEncoder()
	req.Encode(e)

	got := &ProduceRequest{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestProduceResponseRoundTrip(t *testing.T) {
	resp := &ProduceResponse{
		Topics: []ProduceTopicResponse{
			{
				Topic: "orders",
				Partitions: []ProducePartitionResponse{
					{Partition: 0, ErrorCode: NoError, OffsetOfLast: 17},
					{Partition: 1, ErrorCode: ProduceDisallowed, OffsetOfLast: -1},
				},
			},
		},
	}
	e := NewEncoder()
	resp.Encode(e)

	got := &ProduceResponse{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}
