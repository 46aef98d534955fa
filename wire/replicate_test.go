package wire

import (
	"reflect"
	"testing"
)

func TestReplicateRequestRoundTrip(t *testing.T) {
	req := &ReplicateRequest{
		Topic:               "orders",
		Partition:           0,
		ExpectedStartOffset: 100,
		Records: []ReplicateRecord{
			{Offset: 100, Payload: []byte("a")},
			{Offset: 101, Payload: []byte("b")},
		},
	}
	e := NewEncoder()
	req.Encode(e)

	got := &ReplicateRequest{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestReplicateResponseSuccessRoundTrip(t *testing.T) {
	resp := &ReplicateResponse{Partition: 0, ErrorCode: NoError, OffsetOfLast: 101}
	e := NewEncoder()
	resp.Encode(e)

	got := &ReplicateResponse{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}

func TestReplicateResponseWriteRepairRoundTrip(t *testing.T) {
	resp := &ReplicateResponse{
		Partition:        0,
		ErrorCode:        WriteRepair,
		OffsetOfLast:     105,
		RepairFromOffset: 100,
		RepairRecords: []ReplicateRecord{
			{Offset: 100, Payload: []byte("a")},
			{Offset: 101, Payload: []byte("b")},
		},
	}
	e := NewEncoder()
	resp.Encode(e)

	got := &ReplicateResponse{}
	if err := got.Decode(NewDecoder(e.Bytes())); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}

func TestReplicateResponseSuccessOmitsRepairFields(t *testing.T) {
	resp := &ReplicateResponse{Partition: 0, ErrorCode: NoError, OffsetOfLast: 10}
	e := NewEncoder()
	resp.Encode(e)

	// partition(4) + errorCode(2) + offsetOfLast(8), nothing more.
	if e.Len() != 14 {
		t.Fatalf("expected 14 bytes for a success response with no repair payload, got %d", e.Len())
	}
}
