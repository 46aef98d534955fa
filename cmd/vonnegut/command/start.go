package command

import (
	"flag"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/coreos/etcd/pkg/osutil"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/evanmcc/vonnegut/chain"
	"github.com/evanmcc/vonnegut/chainmap"
	"github.com/evanmcc/vonnegut/conf"
	"github.com/evanmcc/vonnegut/logstore"
	"github.com/evanmcc/vonnegut/metrics"
	"github.com/evanmcc/vonnegut/registry"
	"github.com/evanmcc/vonnegut/server"
)

// ConfigFile is set by the root command's persistent --config flag,
// mirroring the teacher's package-level ConfigFile var in cmd/vdl/command.
var ConfigFile string

func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a vonnegut server",
		Run:   startFunc,
	}
}

func startFunc(cmd *cobra.Command, args []string) {
	if ConfigFile == "" {
		exitWithError(exitBadArgs, fmt.Errorf("config file must be provided with --config"))
	}

	c, err := conf.Load(ConfigFile)
	if err != nil {
		exitWithError(exitError, err)
	}

	// glog has no programmatic "init" entry point (its own flags govern
	// it); setting the flags it reads is the supported way to configure
	// it without parsing the process's argv a second time through cobra.
	if c.GlogDir != "" {
		flag.Set("log_dir", c.GlogDir)
	}
	if c.Debug {
		flag.Set("v", "2")
	}
	defer glog.Flush()

	role, err := parseRole(c.Chain.Role)
	if err != nil {
		exitWithError(exitError, err)
	}

	opts := logstore.Options{MaxSegmentBytes: c.SegmentBytes, IndexIntervalBytes: c.IndexIntervalBytes}
	chainMap := chainmap.New()
	if err := loadChainMap(chainMap, c.Chain.Peers); err != nil {
		exitWithError(exitError, err)
	}

	var reg *registry.Registry
	for _, dir := range c.LogDirs {
		r, err := registry.Open(dir, opts, chainMap)
		if err != nil {
			exitWithError(exitError, err)
		}
		reg = r
		break // multiple log_dirs for striping across disks is future work; the first is authoritative today.
	}

	var next *chain.Client
	if role == chain.Head || role == chain.Middle {
		next = chain.NewClient(c.Chain.NextHop, chain.ReplicateTimeout)
		defer next.Close()
	}
	supervisor := chain.NewSupervisor(role, reg, next)
	rateLimiter := server.NewRateLimiter(c.RateQuota)

	m := metrics.New()
	metricsLn, err := metrics.NewListener(c.MetricsListenAddress, m)
	if err != nil {
		exitWithError(exitError, err)
	}
	go func() {
		if err := metricsLn.Serve(); err != nil {
			glog.Errorf("metrics listener: %v", err)
		}
	}()

	srv := server.New(server.Options{
		Addr:               net.JoinHostPort("", strconv.Itoa(c.Port)),
		Role:               role,
		ConnectionsMaxIdle: time.Duration(c.ConnectionsMaxIdleMs) * time.Millisecond,
		Registry:           reg,
		ChainMap:           chainMap,
		Supervisor:         supervisor,
		Metrics:            m,
		RateLimiter:        rateLimiter,
	})
	if err := srv.Start(); err != nil {
		exitWithError(exitError, err)
	}

	shutdown := func() {
		glog.Infof("command: shutting down")
		srv.Close()
		metricsLn.Close()
		reg.Close()
	}
	osutil.RegisterInterruptHandler(shutdown)
	osutil.HandleInterrupts()

	if err := srv.Serve(); err != nil {
		exitWithError(exitError, err)
	}
}

func parseRole(s string) (chain.Role, error) {
	switch s {
	case "head":
		return chain.Head, nil
	case "middle":
		return chain.Middle, nil
	case "tail":
		return chain.Tail, nil
	case "solo":
		return chain.Solo, nil
	default:
		return chain.Undefined, fmt.Errorf("command: unrecognized chain.role %q", s)
	}
}

func loadChainMap(m *chainmap.Map, peers []conf.ChainPeer) error {
	entries := make([]chainmap.Entry, len(peers))
	for i, p := range peers {
		head, err := parseEndpoint(p.Head)
		if err != nil {
			return fmt.Errorf("command: chain peer %s: %w", p.Name, err)
		}
		tail, err := parseEndpoint(p.Tail)
		if err != nil {
			return fmt.Errorf("command: chain peer %s: %w", p.Name, err)
		}
		entries[i] = chainmap.Entry{
			Name: p.Name, Head: head, Tail: tail,
			TopicsStart: p.TopicsStart, TopicsEnd: p.TopicsEnd,
		}
	}
	m.Load(entries)
	return nil
}

func parseEndpoint(addr string) (chainmap.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return chainmap.Endpoint{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return chainmap.Endpoint{}, err
	}
	return chainmap.Endpoint{Host: host, Port: port}, nil
}
