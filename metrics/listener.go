package metrics

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/golang/glog"
)

// Listener serves m's Prometheus exposition over HTTP, grounded on the
// teacher's startMetricsListener (an http.Server fronting a promhttp
// handler on its own listener, torn down independently of the client
// listener during shutdown).
type Listener struct {
	srv *http.Server
	ln  net.Listener
}

// NewListener parses addr (a URL like "http://127.0.0.1:9102") and binds
// its listener without serving yet.
func NewListener(addr string, m *Metrics) (*Listener, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Listener{srv: &http.Server{Handler: mux}, ln: ln}, nil
}

// Serve blocks, serving until Close is called.
func (l *Listener) Serve() error {
	glog.Infof("metrics: listening on %s", l.ln.Addr())
	err := l.srv.Serve(l.ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (l *Listener) Close() error {
	return l.srv.Shutdown(context.Background())
}
