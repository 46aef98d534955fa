// Package adminclient is vonnegutctl's connection to a vonnegut node: a
// thin wire-protocol client for the admin opcodes (metadata, ensure_topic,
// delete_topic) that mirrors chain.Client's dial/round-trip/reconnect
// shape rather than the teacher's gRPC-based apiclient, since this
// project's nodes speak the same length-prefixed wire codec everywhere,
// admin surface included — there is no separate gRPC admin service to
// dial.
package adminclient

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/evanmcc/vonnegut/wire"
)

var ErrNoEndpoint = errors.New("adminclient: no endpoint given")

// Client is a persistent, lazily-reconnected connection to one vonnegut
// node, serializing admin round-trips under a mutex the same way
// chain.Client serializes replicate round-trips — vonnegutctl issues one
// command at a time, so there is no need for a correlation-id demux.
type Client struct {
	addr           string
	dialTimeout    time.Duration
	commandTimeout time.Duration

	mu            sync.Mutex
	conn          net.Conn
	correlationID int32
}

// NewClient builds a client dialing addr with dialTimeout; each round-trip
// afterward gets its own deadline of commandTimeout.
func NewClient(addr string, dialTimeout, commandTimeout time.Duration) (*Client, error) {
	if addr == "" {
		return nil, ErrNoEndpoint
	}
	return &Client{addr: addr, dialTimeout: dialTimeout, commandTimeout: commandTimeout}, nil
}

func (c *Client) Metadata(topics []string) (*wire.MetadataResponse, error) {
	resp := &wire.MetadataResponse{}
	req := &wire.MetadataRequest{Topics: topics}
	if err := c.roundTrip(wire.Metadata, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) EnsureTopic(topic string, partitions []int32) (*wire.SimpleTopicResponse, error) {
	resp := &wire.SimpleTopicResponse{}
	req := &wire.EnsureRequest{Topics: []wire.EnsureTopic{{Topic: topic, Partitions: partitions}}}
	if err := c.roundTrip(wire.Ensure, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) DeleteTopic(topic string, partitions []int32) (*wire.SimpleTopicResponse, error) {
	resp := &wire.SimpleTopicResponse{}
	req := &wire.DeleteTopicRequest{Topics: []wire.EnsureTopic{{Topic: topic, Partitions: partitions}}}
	if err := c.roundTrip(wire.DeleteTopic, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type encoder interface{ Encode(e *wire.Encoder) }
type decoder interface{ Decode(d *wire.Decoder) error }

func (c *Client) roundTrip(apiKey int16, req encoder, resp decoder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConnLocked()
	if err != nil {
		return err
	}

	if err := c.doRoundTrip(conn, apiKey, req, resp); err != nil {
		conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) ensureConnLocked() (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) doRoundTrip(conn net.Conn, apiKey int16, req encoder, resp decoder) error {
	if err := conn.SetDeadline(time.Now().Add(c.commandTimeout)); err != nil {
		return err
	}

	c.correlationID++
	header := wire.RequestHeader{
		APIKey:        apiKey,
		CorrelationID: c.correlationID,
		ClientID:      "vonnegutctl",
	}
	e := wire.NewEncoder()
	header.Encode(e)
	req.Encode(e)
	if err := wire.WriteFrame(conn, e.Bytes()); err != nil {
		return err
	}

	body, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}
	d := wire.NewDecoder(body)
	var respHeader wire.ResponseHeader
	if err := respHeader.Decode(d); err != nil {
		return err
	}
	return resp.Decode(d)
}

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
