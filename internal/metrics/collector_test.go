package metrics

import "testing"

func TestCollectorAveragesVolumeWeightedPrice(t *testing.T) {
	c := New()
	c.RecordSubmit("fast")
	c.RecordFill("fast", 100*1_0000, 4) // price 100.0000 (1,000,000 ticks), qty 4
	c.RecordFill("fast", 102*1_0000, 6) // price 102.0000 (1,020,000 ticks), qty 6

	snap := c.Snapshot()
	m, ok := snap["fast"]
	if !ok {
		t.Fatal("expected metrics for tag \"fast\"")
	}
	if m.OrdersSent != 1 {
		t.Errorf("orders sent = %d, want 1", m.OrdersSent)
	}
	if m.TotalFills != 2 {
		t.Errorf("total fills = %d, want 2", m.TotalFills)
	}
	if m.TotalQtyFilled != 10 {
		t.Errorf("total qty filled = %d, want 10", m.TotalQtyFilled)
	}
	want := (100.0*4 + 102.0*6) / 10
	if m.AvgExecPrice != want {
		t.Errorf("avg exec price = %f, want %f", m.AvgExecPrice, want)
	}
}

func TestCollectorTagsSorted(t *testing.T) {
	c := New()
	c.RecordSubmit("zeta")
	c.RecordSubmit("alpha")
	c.RecordSubmit("mu")

	tags := c.Tags()
	want := []string{"alpha", "mu", "zeta"}
	if len(tags) != len(want) {
		t.Fatalf("got %d tags, want %d", len(tags), len(want))
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestCollectorEmptyTagIgnored(t *testing.T) {
	c := New()
	c.RecordSubmit("")
	c.RecordFill("", 100, 1)
	if len(c.Tags()) != 0 {
		t.Errorf("expected no tags, got %v", c.Tags())
	}
}
