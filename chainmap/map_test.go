package chainmap

import "testing"

func TestLookupRespectsHalfOpenRange(t *testing.T) {
	m := New()
	m.Load([]Entry{
		{Name: "a", TopicsStart: "", TopicsEnd: "m", Head: Endpoint{"h1", 1}, Tail: Endpoint{"t1", 2}},
		{Name: "b", TopicsStart: "m", TopicsEnd: "", Head: Endpoint{"h2", 3}, Tail: Endpoint{"t2", 4}},
	})

	cases := []struct {
		topic string
		want  string
	}{
		{"apples", "a"},
		{"m", "b"},
		{"zebra", "b"},
	}
	for _, c := range cases {
		e, ok := m.Lookup(c.topic)
		if !ok {
			t.Fatalf("Lookup(%q) found no entry", c.topic)
		}
		if e.Name != c.want {
			t.Fatalf("Lookup(%q) = %q, want %q", c.topic, e.Name, c.want)
		}
	}
}

func TestLookupMiss(t *testing.T) {
	m := New()
	m.Load([]Entry{{Name: "a", TopicsStart: "m", TopicsEnd: "z"}})
	if _, ok := m.Lookup("apples"); ok {
		t.Fatalf("Lookup should not have found a covering entry")
	}
}

func TestEndpointString(t *testing.T) {
	e := Endpoint{Host: "127.0.0.1", Port: 9092}
	if got, want := e.String(), "127.0.0.1:9092"; got != want {
		t.Fatalf("Endpoint.String() = %q, want %q", got, want)
	}
}
