package command

import (
	"testing"

	"github.com/evanmcc/vonnegut/chain"
	"github.com/evanmcc/vonnegut/chainmap"
	"github.com/evanmcc/vonnegut/conf"
)

func TestParseRole(t *testing.T) {
	cases := map[string]chain.Role{
		"head":   chain.Head,
		"middle": chain.Middle,
		"tail":   chain.Tail,
		"solo":   chain.Solo,
	}
	for s, want := range cases {
		got, err := parseRole(s)
		if err != nil {
			t.Fatalf("parseRole(%q): %v", s, err)
		}
		if got != want {
			t.Fatalf("parseRole(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseRoleInvalid(t *testing.T) {
	if _, err := parseRole("bogus"); err == nil {
		t.Fatal("expected error for unrecognized role")
	}
}

func TestParseEndpoint(t *testing.T) {
	e, err := parseEndpoint("10.0.0.1:5555")
	if err != nil {
		t.Fatalf("parseEndpoint: %v", err)
	}
	if e.Host != "10.0.0.1" || e.Port != 5555 {
		t.Fatalf("endpoint = %+v", e)
	}
}

func TestParseEndpointInvalid(t *testing.T) {
	if _, err := parseEndpoint("not-an-endpoint"); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
}

func TestLoadChainMap(t *testing.T) {
	m := chainmap.New()
	peers := []conf.ChainPeer{
		{Name: "orders", Head: "10.0.0.1:5555", Tail: "10.0.0.3:5555", TopicsStart: "a", TopicsEnd: "m"},
		{Name: "payments", Head: "10.0.0.4:5555", Tail: "10.0.0.6:5555", TopicsStart: "m", TopicsEnd: ""},
	}
	if err := loadChainMap(m, peers); err != nil {
		t.Fatalf("loadChainMap: %v", err)
	}

	entry, ok := m.Lookup("apples")
	if !ok || entry.Name != "orders" {
		t.Fatalf("Lookup(apples) = %+v, %v", entry, ok)
	}
	entry, ok = m.Lookup("zebras")
	if !ok || entry.Name != "payments" {
		t.Fatalf("Lookup(zebras) = %+v, %v", entry, ok)
	}
}

func TestLoadChainMapRejectsBadEndpoint(t *testing.T) {
	m := chainmap.New()
	peers := []conf.ChainPeer{{Name: "orders", Head: "not-an-endpoint", Tail: "10.0.0.3:5555"}}
	if err := loadChainMap(m, peers); err == nil {
		t.Fatal("expected error for malformed head endpoint")
	}
}
