package chain

import (
	"net"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/evanmcc/vonnegut/wire"
)

// ErrTimeout is returned by Supervisor.replicateWithRepair when a
// downstream Replicate call fails for any reason (timeout, closed socket,
// decode error) or a write-repair refetch fails. Per the failure mapping,
// callers surface this to their own upstream as wire.TimeoutError.
type timeoutError struct{}

func (timeoutError) Error() string { return "chain: replicate round-trip timed out" }
func (timeoutError) Timeout() bool { return true }

var ErrTimeout error = timeoutError{}

// Client is a persistent, lazily-reconnected connection to the next hop
// in a replication chain. One Client exists per downstream endpoint; it
// serializes calls to Replicate since a single socket cannot interleave
// two in-flight requests without a correlation-id demux the chain
// protocol doesn't need (a node has exactly one outstanding replicate
// call downstream at a time).
type Client struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewClient constructs a client for addr. No connection is made until
// the first call to Replicate.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

// Replicate sends req downstream and waits for the response, dialing
// (or redialing) as needed. On any I/O failure or timeout the underlying
// connection is torn down so the next call reconnects from scratch.
func (c *Client) Replicate(req *wire.ReplicateRequest, correlationID int32) (*wire.ReplicateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConnLocked()
	if err != nil {
		return nil, err
	}

	resp, err := c.roundTrip(conn, req, correlationID)
	if err != nil {
		glog.Warningf("chain: replicate to %s failed, closing connection: %v", c.addr, err)
		conn.Close()
		c.conn = nil
		return nil, err
	}
	return resp, nil
}

func (c *Client) ensureConnLocked() (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) roundTrip(conn net.Conn, req *wire.ReplicateRequest, correlationID int32) (*wire.ReplicateResponse, error) {
	deadline := time.Now().Add(c.timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	header := wire.RequestHeader{
		APIKey:        wire.Replicate,
		APIVersion:    0,
		CorrelationID: correlationID,
		ClientID:      "vonnegut-chain-client",
	}
	e := wire.NewEncoder()
	header.Encode(e)
	req.Encode(e)
	if err := wire.WriteFrame(conn, e.Bytes()); err != nil {
		return nil, err
	}

	body, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, err
	}
	d := wire.NewDecoder(body)
	var respHeader wire.ResponseHeader
	if err := respHeader.Decode(d); err != nil {
		return nil, err
	}
	resp := &wire.ReplicateResponse{}
	if err := resp.Decode(d); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close tears down the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
