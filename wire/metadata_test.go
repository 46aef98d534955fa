package wire

import (
	"reflect"
	"testing"
)

func TestMetadataRequestRoundTrip(t *testing.T) {
	req := &MetadataRequest{Topics: []string{"orders", "payments"}}
	e := NewEncoder()
	req.Encode(e)

	got := &MetadataRequest{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestMetadataResponseRoundTrip(t *testing.T) {
	resp := &MetadataResponse{
		Nodes: []MetadataNode{
			{NodeID: 1, Host: "10.0.0.1", Port: 9092},
			{NodeID: 2, Host: "10.0.0.2", Port: 9092},
		},
		Topics: []MetadataTopic{
			{
				Topic: "orders",
				Partitions: []MetadataPartition{
					{Partition: 0, HeadID: 1, TailID: 2},
				},
			},
		},
	}
	e := NewEncoder()
	resp.Encode(e)

	got := &MetadataResponse{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}

func TestEnsureRequestRoundTrip(t *testing.T) {
	req := &EnsureRequest{
		Topics: []EnsureTopic{
			{Topic: "orders", Partitions: []int32{0, 1, 2}},
		},
	}
	e := NewEncoder()
	req.Encode(e)

	got := &EnsureRequest{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestDeleteTopicRequestRoundTrip(t *testing.T) {
	req := &DeleteTopicRequest{
		Topics: []EnsureTopic{
			{Topic: "orders", Partitions: []int32{0}},
		},
	}
	e := NewEncoder()
	req.Encode(e)

	got := &DeleteTopicRequest{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestSimpleTopicResponseRoundTrip(t *testing.T) {
	resp := &SimpleTopicResponse{
		Topics: []SimpleTopicResult{
			{
				Topic: "orders",
				Partitions: []SimplePartitionResult{
					{Partition: 0, ErrorCode: NoError},
					{Partition: 1, ErrorCode: UnknownTopicOrPartition},
				},
			},
		},
	}
	e := NewEncoder()
	resp.Encode(e)

	got := &SimpleTopicResponse{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}
