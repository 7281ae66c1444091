package core

import (
	"sync"
	"testing"
)

func containsClient(clients []*Client, c *Client) bool {
	for _, got := range clients {
		if got == c {
			return true
		}
	}
	return false
}

func TestRegistryBindAndResolve(t *testing.T) {
	reg := NewRegistry()

	c1 := NewClient("c1")
	c2 := NewClient("c2")

	reg.Bind(c1, "u1")
	reg.Bind(c2, "u1")

	clients := reg.Resolve("u1")
	if len(clients) != 2 || !containsClient(clients, c1) || !containsClient(clients, c2) {
		t.Fatalf("expected both connections bound to u1, got %d", len(clients))
	}

	if user, ok := reg.UserOf(c1); !ok || user != "u1" {
		t.Fatalf("expected c1 bound to u1, got %q (%v)", user, ok)
	}

	if got := reg.Resolve("u2"); len(got) != 0 {
		t.Fatalf("expected no connections for u2, got %d", len(got))
	}
}

func TestRegistryRebindIsExclusive(t *testing.T) {
	reg := NewRegistry()

	c := NewClient("c1")
	reg.Bind(c, "u1")
	reg.Bind(c, "u2")

	if got := reg.Resolve("u1"); containsClient(got, c) {
		t.Fatalf("connection still resolvable under previous binding")
	}
	if got := reg.Resolve("u2"); !containsClient(got, c) {
		t.Fatalf("connection not resolvable under new binding")
	}
	if user, _ := reg.UserOf(c); user != "u2" {
		t.Fatalf("expected binding u2, got %q", user)
	}
}

func TestRegistryRebindSameUserIsNoop(t *testing.T) {
	reg := NewRegistry()

	c := NewClient("c1")
	reg.Bind(c, "u1")
	reg.Bind(c, "u1")

	if got := reg.Resolve("u1"); len(got) != 1 {
		t.Fatalf("expected a single binding, got %d", len(got))
	}
}

func TestRegistryUnbind(t *testing.T) {
	reg := NewRegistry()

	c := NewClient("c1")
	reg.Bind(c, "u1")
	reg.Unbind(c)

	if got := reg.Resolve("u1"); len(got) != 0 {
		t.Fatalf("expected no connections after unbind, got %d", len(got))
	}
	if _, ok := reg.UserOf(c); ok {
		t.Fatalf("expected connection to be unbound")
	}

	// Unbinding an unbound connection is a no-op.
	reg.Unbind(c)
	reg.Unbind(NewClient("never-bound"))
}

func TestRegistryConcurrentBindUnbind(t *testing.T) {
	reg := NewRegistry()

	const workers = 16
	var wg sync.WaitGroup
	clients := make([]*Client, workers)

	for i := range workers {
		clients[i] = NewClient("c")
		wg.Add(1)
		go func(c *Client, odd bool) {
			defer wg.Done()
			for range 100 {
				reg.Bind(c, "u1")
				if odd {
					reg.Bind(c, "u2")
				}
				reg.Resolve("u1")
				reg.Unbind(c)
			}
		}(clients[i], i%2 == 1)
	}
	wg.Wait()

	if got := reg.Resolve("u1"); len(got) != 0 {
		t.Fatalf("expected empty registry after all unbinds, got %d", len(got))
	}
	if got := reg.Resolve("u2"); len(got) != 0 {
		t.Fatalf("expected empty registry after all unbinds, got %d", len(got))
	}
}
