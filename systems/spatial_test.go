package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/skirmish/components"
)

func newEntities(t *testing.T, n int) []ecs.Entity {
	t.Helper()
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[components.Position](world)
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = mapper.NewEntity(&components.Position{})
	}
	return out
}

// TestSpatialGridQueryRadius verifies radius queries include body radii and honour exclude.
func TestSpatialGridQueryRadius(t *testing.T) {
	es := newEntities(t, 4)
	grid := NewSpatialGrid(1000, 1000, 64)
	grid.Insert(es[0], 1, vec(100, 100), 10)
	grid.Insert(es[1], 2, vec(130, 100), 10) // 30 away, reachable with body radius
	grid.Insert(es[2], 3, vec(300, 100), 10)
	grid.Insert(es[3], 4, vec(100, 100), 5) // same spot, excluded

	got := grid.QueryRadiusInto(nil, vec(100, 100), 25, es[3])
	found := map[uint32]bool{}
	for _, n := range got {
		found[n.ID] = true
	}
	if !found[1] || !found[2] {
		t.Errorf("missing neighbours, got %v", found)
	}
	if found[3] {
		t.Error("distant entity returned")
	}
	if found[4] {
		t.Error("excluded entity returned")
	}
}

// TestSpatialGridClampsOutside verifies positions outside the world land in border cells.
func TestSpatialGridClampsOutside(t *testing.T) {
	es := newEntities(t, 1)
	grid := NewSpatialGrid(500, 500, 64)
	grid.Insert(es[0], 1, vec(-20, -20), 5)

	got := grid.QueryRadiusInto(nil, vec(0, 0), 30, ecs.Entity{})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	grid.Clear()
	if got := grid.QueryRadiusInto(nil, vec(0, 0), 30, ecs.Entity{}); len(got) != 0 {
		t.Errorf("after Clear len = %d, want 0", len(got))
	}
}

// TestSpatialGridRemove verifies removed entities drop out of queries.
func TestSpatialGridRemove(t *testing.T) {
	es := newEntities(t, 2)
	grid := NewSpatialGrid(1000, 1000, 64)
	grid.Insert(es[0], 1, vec(100, 100), 10)
	grid.Insert(es[1], 2, vec(110, 100), 10)

	if !grid.Remove(es[0], vec(100, 100)) {
		t.Fatal("Remove did not find inserted entity")
	}
	if grid.Remove(es[0], vec(100, 100)) {
		t.Error("second Remove found the entity again")
	}
	got := grid.QuerySegmentInto(nil, vec(90, 100), vec(120, 100), 3)
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("got %+v, want only agent 2", got)
	}
}

// TestSpatialGridQuerySegment verifies segment broadphase locality.
func TestSpatialGridQuerySegment(t *testing.T) {
	es := newEntities(t, 2)
	grid := NewSpatialGrid(1000, 1000, 64)
	grid.Insert(es[0], 1, vec(50, 10), 10)
	grid.Insert(es[1], 2, vec(900, 900), 10)

	got := grid.QuerySegmentInto(nil, vec(0, 0), vec(100, 0), 3)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("got %+v, want only agent 1", got)
	}
}
