package command

import "testing"

func TestParseTopicAndPartitions(t *testing.T) {
	topic, partitions := parseTopicAndPartitions([]string{"orders", "0,1, 2"})
	if topic != "orders" {
		t.Fatalf("topic = %q, want orders", topic)
	}
	want := []int32{0, 1, 2}
	if len(partitions) != len(want) {
		t.Fatalf("partitions = %v, want %v", partitions, want)
	}
	for i := range want {
		if partitions[i] != want[i] {
			t.Fatalf("partitions = %v, want %v", partitions, want)
		}
	}
}

func TestParseTopicAndPartitionsSingle(t *testing.T) {
	topic, partitions := parseTopicAndPartitions([]string{"orders", "5"})
	if topic != "orders" || len(partitions) != 1 || partitions[0] != 5 {
		t.Fatalf("topic=%q partitions=%v", topic, partitions)
	}
}
