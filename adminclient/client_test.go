package adminclient

import (
	"testing"
	"time"

	"github.com/evanmcc/vonnegut/chain"
	"github.com/evanmcc/vonnegut/chainmap"
	"github.com/evanmcc/vonnegut/logstore"
	"github.com/evanmcc/vonnegut/metrics"
	"github.com/evanmcc/vonnegut/registry"
	"github.com/evanmcc/vonnegut/server"
	"github.com/evanmcc/vonnegut/wire"
)

// startTestServer mirrors server_test.go's helper of the same name: a
// solo-role node with a throwaway registry, exercising adminclient against
// the real wire protocol rather than a mock. Its chain map holds one
// open-ended entry covering every topic, since metadata only reports
// topics that a chain covers.
func startTestServer(t *testing.T) string {
	t.Helper()
	cm := chainmap.New()
	cm.Load([]chainmap.Entry{{Name: "solo"}})
	reg, err := registry.Open(t.TempDir(), logstore.Options{MaxSegmentBytes: 1 << 20, IndexIntervalBytes: 4096}, cm)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	sup := chain.NewSupervisor(chain.Solo, reg, nil)
	srv := server.New(server.Options{
		Addr:       "127.0.0.1:0",
		Role:       chain.Solo,
		Registry:   reg,
		Supervisor: sup,
		Metrics:    metrics.NewUnregistered(),
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv.Addr()
}

func dialClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := NewClient(addr, time.Second, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient("", time.Second, time.Second); err != ErrNoEndpoint {
		t.Fatalf("err = %v, want ErrNoEndpoint", err)
	}
}

func TestEnsureThenMetadataThenDelete(t *testing.T) {
	addr := startTestServer(t)
	c := dialClient(t, addr)

	ensureResp, err := c.EnsureTopic("orders", []int32{0, 1})
	if err != nil {
		t.Fatalf("EnsureTopic: %v", err)
	}
	for _, part := range ensureResp.Topics[0].Partitions {
		if part.ErrorCode != wire.NoError {
			t.Fatalf("ensure partition %d errorCode = %d", part.Partition, part.ErrorCode)
		}
	}

	metaResp, err := c.Metadata([]string{"orders"})
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if len(metaResp.Topics) != 1 || metaResp.Topics[0].Topic != "orders" {
		t.Fatalf("Topics = %+v", metaResp.Topics)
	}
	if len(metaResp.Topics[0].Partitions) != 2 {
		t.Fatalf("Partitions = %+v", metaResp.Topics[0].Partitions)
	}

	deleteResp, err := c.DeleteTopic("orders", []int32{0, 1})
	if err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	for _, part := range deleteResp.Topics[0].Partitions {
		if part.ErrorCode != wire.NoError {
			t.Fatalf("delete partition %d errorCode = %d", part.Partition, part.ErrorCode)
		}
	}

	metaResp, err = c.Metadata([]string{"orders"})
	if err != nil {
		t.Fatalf("Metadata after delete: %v", err)
	}
	if len(metaResp.Topics) != 0 {
		t.Fatalf("Topics after delete = %+v, want empty", metaResp.Topics)
	}
}

func TestReconnectAfterConnClosed(t *testing.T) {
	addr := startTestServer(t)
	c := dialClient(t, addr)

	if _, err := c.Metadata([]string{"orders"}); err != nil {
		t.Fatalf("Metadata: %v", err)
	}

	// Force the underlying connection closed; the next call must transparently
	// redial rather than surface a stale-connection error.
	c.mu.Lock()
	c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	if _, err := c.Metadata([]string{"orders"}); err != nil {
		t.Fatalf("Metadata after forced reconnect: %v", err)
	}
}
