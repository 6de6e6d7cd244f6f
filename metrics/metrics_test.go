package metrics

import (
	"sync"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	reg := NewRegistry()

	c := reg.Counter("requests")
	c.Inc()
	c.Add(2)
	if c.Count() != 3 {
		t.Fatalf("Count = %d, want 3", c.Count())
	}
	if reg.Counter("requests") != c {
		t.Fatal("Counter should return the same instance per name")
	}

	g := reg.Gauge("pending")
	g.Update(42)
	if g.Value() != 42 {
		t.Fatalf("Value = %d, want 42", g.Value())
	}

	snap := reg.Snapshot()
	if snap["requests"] != 3 || snap["pending"] != 42 {
		t.Fatalf("Snapshot = %v, want requests=3 pending=42", snap)
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "pending" || names[1] != "requests" {
		t.Fatalf("Names = %v, want [pending requests]", names)
	}
}

func TestCounterConcurrent(t *testing.T) {
	reg := NewRegistry()
	c := reg.Counter("n")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()

	if c.Count() != 8000 {
		t.Fatalf("Count = %d, want 8000", c.Count())
	}
}
