// Package server implements the connection handler (F): the TCP accept
// loop, the per-connection frame-read/dispatch loop, and the role-gated
// opcode handlers that bridge the wire protocol to the registry and chain
// packages.
package server

import (
	"net"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/evanmcc/vonnegut/chain"
	"github.com/evanmcc/vonnegut/chainmap"
	"github.com/evanmcc/vonnegut/metrics"
	"github.com/evanmcc/vonnegut/registry"
)

// Server owns one listening socket, tagged with a single role for every
// connection it accepts (role assignment happens once, at configuration
// time, per spec: "a listening socket accepted for it tagged with a
// role" — there is no per-connection role negotiation).
type Server struct {
	addr               string
	role               chain.Role
	connectionsMaxIdle time.Duration

	registry    *registry.Registry
	chainMap    *chainmap.Map
	supervisor  *chain.Supervisor
	metrics     *metrics.Metrics
	rateLimiter *RateLimiter

	ln         *net.TCPListener
	shutdownCh chan struct{}
	closeOnce  sync.Once

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	wg sync.WaitGroup
}

// Options bundles the collaborators a Server needs, all of which are
// constructed by the caller (cmd/vonnegut) from the loaded Config.
type Options struct {
	Addr               string
	Role               chain.Role
	ConnectionsMaxIdle time.Duration
	Registry           *registry.Registry
	ChainMap           *chainmap.Map
	Supervisor         *chain.Supervisor
	Metrics            *metrics.Metrics
	RateLimiter        *RateLimiter
}

func New(opts Options) *Server {
	idle := opts.ConnectionsMaxIdle
	if idle == 0 {
		idle = 10 * time.Minute
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Server{
		addr:               opts.Addr,
		role:               opts.Role,
		connectionsMaxIdle: idle,
		registry:           opts.Registry,
		chainMap:           opts.ChainMap,
		supervisor:         opts.Supervisor,
		metrics:            m,
		rateLimiter:        opts.RateLimiter,
		shutdownCh:         make(chan struct{}),
		conns:              make(map[net.Conn]struct{}),
	}
}

// Start resolves and binds the listening socket. It does not block; call
// Serve to run the accept loop.
func (s *Server) Start() error {
	addr, err := net.ResolveTCPAddr("tcp", s.addr)
	if err != nil {
		glog.Errorf("server: ResolveTCPAddr(%s): %v", s.addr, err)
		return err
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		glog.Errorf("server: ListenTCP(%s): %v", s.addr, err)
		return err
	}
	s.ln = ln
	glog.Infof("server: listening on %s as role=%s, connections_max_idle=%s", s.addr, s.role, s.connectionsMaxIdle)
	return nil
}

// Addr returns the resolved listen address, useful when Options.Addr used
// port 0 and the caller needs the bound port (tests; cmd/vonnegut logging).
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve runs the accept loop until Close is called. It blocks.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				glog.Infof("server: listener closed, accept loop exiting")
				return nil
			default:
				glog.Warningf("server: accept failed: %v", err)
				continue
			}
		}
		glog.Infof("server: accepted connection from %v", conn.RemoteAddr())
		s.metrics.ConnectionOpened()
		s.trackConn(conn)
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

// Close transitions every live connection Ready -> Draining -> Closed: the
// listener stops accepting immediately, and every connection currently
// being served has its socket closed, which unblocks its read loop with an
// I/O error and lets it exit.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.shutdownCh)
		if s.ln != nil {
			s.ln.Close()
		}
		s.connsMu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.connsMu.Unlock()
	})
	s.wg.Wait()
	return nil
}
