package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evanmcc/vonnegut/chainmap"
	"github.com/evanmcc/vonnegut/logstore"
)

func testOpts() logstore.Options {
	return logstore.Options{MaxSegmentBytes: 1 << 20, IndexIntervalBytes: 4096}
}

func TestCreateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir, testOpts(), chainmap.New())
	if err != nil {
		t.Fatalf("Open error: %s", err)
	}
	defer r.Close()

	if err := r.Create("t", 0); err != nil {
		t.Fatalf("Create error: %s", err)
	}
	if err := r.Create("t", 0); err != nil {
		t.Fatalf("second Create error: %s", err)
	}
	if _, ok := r.Get("t", 0); !ok {
		t.Fatalf("Get did not find created partition")
	}
	if !dirExists(filepath.Join(dir, "t-0")) {
		t.Fatalf("expected directory t-0 to exist")
	}
}

func TestEnsureCreatesOnce(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir, testOpts(), chainmap.New())
	if err != nil {
		t.Fatalf("Open error: %s", err)
	}
	defer r.Close()

	if err := r.Ensure("t", 0); err != nil {
		t.Fatalf("Ensure error: %s", err)
	}
	p, _ := r.Get("t", 0)
	if _, err := p.Append([][]byte{[]byte("hi")}); err != nil {
		t.Fatalf("Append error: %s", err)
	}
	if err := r.Ensure("t", 0); err != nil {
		t.Fatalf("second Ensure error: %s", err)
	}
	p2, _ := r.Get("t", 0)
	if p2.HighWaterMark() != 0 {
		t.Fatalf("Ensure on existing partition should not reset state, hwm = %d", p2.HighWaterMark())
	}
}

func TestDeleteRemovesDirectoryAndFromMap(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir, testOpts(), chainmap.New())
	if err != nil {
		t.Fatalf("Open error: %s", err)
	}
	defer r.Close()

	if err := r.Create("t", 0); err != nil {
		t.Fatalf("Create error: %s", err)
	}
	if err := r.Delete("t", 0); err != nil {
		t.Fatalf("Delete error: %s", err)
	}
	if _, ok := r.Get("t", 0); ok {
		t.Fatalf("Get should not find deleted partition")
	}
	if dirExists(filepath.Join(dir, "t-0")) {
		t.Fatalf("directory t-0 should have been removed")
	}
}

func TestDeleteUnknownPartition(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir, testOpts(), chainmap.New())
	if err != nil {
		t.Fatalf("Open error: %s", err)
	}
	defer r.Close()

	if err := r.Delete("missing", 0); err != ErrUnknownPartition {
		t.Fatalf("Delete error = %v, want ErrUnknownPartition", err)
	}
}

func TestListIsSortedAndComplete(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir, testOpts(), chainmap.New())
	if err != nil {
		t.Fatalf("Open error: %s", err)
	}
	defer r.Close()

	r.Create("b", 1)
	r.Create("a", 0)
	r.Create("a", 1)

	got := r.List()
	want := []TopicPartition{{"a", 0}, {"a", 1}, {"b", 1}}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReopenRecoversExistingPartitions(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir, testOpts(), chainmap.New())
	if err != nil {
		t.Fatalf("Open error: %s", err)
	}
	if err := r.Create("t", 0); err != nil {
		t.Fatalf("Create error: %s", err)
	}
	p, _ := r.Get("t", 0)
	p.Append([][]byte{[]byte("a"), []byte("b")})
	if err := r.Close(); err != nil {
		t.Fatalf("Close error: %s", err)
	}

	r2, err := Open(dir, testOpts(), chainmap.New())
	if err != nil {
		t.Fatalf("reopen Open error: %s", err)
	}
	defer r2.Close()

	p2, ok := r2.Get("t", 0)
	if !ok {
		t.Fatalf("reopened registry did not recover partition t-0")
	}
	if hwm := p2.HighWaterMark(); hwm != 1 {
		t.Fatalf("recovered high water mark = %d, want 1", hwm)
	}
}

func TestGetChainDelegatesToChainMap(t *testing.T) {
	dir := t.TempDir()
	cm := chainmap.New()
	cm.Load([]chainmap.Entry{{Name: "c1", TopicsStart: "", TopicsEnd: ""}})

	r, err := Open(dir, testOpts(), cm)
	if err != nil {
		t.Fatalf("Open error: %s", err)
	}
	defer r.Close()

	e, ok := r.GetChain("anything")
	if !ok || e.Name != "c1" {
		t.Fatalf("GetChain = %+v, %v, want c1/true", e, ok)
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
