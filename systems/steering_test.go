package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/components"
)

func testSteerParams() SteerParams {
	return SteerParams{
		VisibilityBound: 800,
		NearDistance:    200,
		FarDistance:     500,
		NearInterval:    0.1,
		MidInterval:     0.4,
		FarInterval:     1.2,
		StopDistance:    12,
	}
}

// TestRetargetInterval verifies distance tiers.
func TestRetargetInterval(t *testing.T) {
	p := testSteerParams()
	tests := []struct {
		dist float64
		want float64
	}{
		{0, 0.1},
		{199, 0.1},
		{200, 0.4},
		{499, 0.4},
		{500, 1.2},
		{10000, 1.2},
	}
	for _, tt := range tests {
		if got := RetargetInterval(tt.dist, p); got != tt.want {
			t.Errorf("RetargetInterval(%v) = %v, want %v", tt.dist, got, tt.want)
		}
	}
}

// TestSteerAgentSkipsInvisible verifies agents beyond the visibility bound are untouched.
func TestSteerAgentSkipsInvisible(t *testing.T) {
	snap := AgentSnapshot{Pos: vec(2000, 0), Speed: 50, Radius: 5, Retarget: 0.3, Target: vec(1, 1)}
	got := SteerAgent(&snap, vec(0, 0), 0.1, stubWalk{}, testSteerParams())

	if !got.Valid || !got.Skipped {
		t.Fatalf("got %+v, want valid skipped intent", got)
	}
	if got.Pos != snap.Pos || got.Retarget != snap.Retarget || got.Target != snap.Target {
		t.Errorf("skipped agent changed: %+v", got)
	}
}

// TestSteerAgentMovesTowardReference verifies retargeting and integration.
func TestSteerAgentMovesTowardReference(t *testing.T) {
	snap := AgentSnapshot{Pos: vec(0, 0), Speed: 50, Radius: 5}
	got := SteerAgent(&snap, vec(100, 0), 0.1, stubWalk{}, testSteerParams())

	if got.Target != vec(100, 0) {
		t.Errorf("Target = %v, want reference", got.Target)
	}
	if got.Retarget != 0.1 {
		t.Errorf("Retarget = %v, want near interval 0.1", got.Retarget)
	}
	if !got.Moved || math.Abs(got.Pos.X-5) > 1e-9 || got.Pos.Y != 0 {
		t.Errorf("Pos = %v, want (5, 0)", got.Pos)
	}
	if got.Heading != 0 {
		t.Errorf("Heading = %v, want 0", got.Heading)
	}
}

// TestSteerAgentKeepsStaleTarget verifies the target holds until the timer expires.
func TestSteerAgentKeepsStaleTarget(t *testing.T) {
	snap := AgentSnapshot{Pos: vec(0, 0), Speed: 50, Radius: 5, Target: vec(0, 100), Retarget: 1}
	got := SteerAgent(&snap, vec(100, 0), 0.1, stubWalk{}, testSteerParams())

	if got.Target != vec(0, 100) {
		t.Errorf("Target = %v, want unchanged", got.Target)
	}
	if math.Abs(got.Retarget-0.9) > 1e-9 {
		t.Errorf("Retarget = %v, want 0.9", got.Retarget)
	}
	if got.Pos.Y <= 0 {
		t.Errorf("agent did not move toward stale target: %v", got.Pos)
	}
}

// TestSteerAgentStopDistance verifies agents stop short and never overshoot.
func TestSteerAgentStopDistance(t *testing.T) {
	p := testSteerParams()

	near := AgentSnapshot{Pos: vec(95, 0), Speed: 50, Radius: 5}
	if got := SteerAgent(&near, vec(100, 0), 0.1, stubWalk{}, p); got.Moved {
		t.Errorf("agent inside stop distance moved to %v", got.Pos)
	}

	fast := AgentSnapshot{Pos: vec(80, 0), Speed: 1000, Radius: 5}
	got := SteerAgent(&fast, vec(100, 0), 0.1, stubWalk{}, p)
	if math.Abs(got.Pos.X-88) > 1e-9 {
		t.Errorf("Pos.X = %v, want 88", got.Pos.X)
	}

	skirter := AgentSnapshot{Pos: vec(50, 0), Speed: 50, Radius: 5, Kind: components.KindSkirter}
	got = SteerAgent(&skirter, vec(100, 0), 0.1, stubWalk{}, p)
	if math.Abs(got.Pos.X-2-50) > 1e-9 {
		t.Errorf("skirter Pos.X = %v, want 52", got.Pos.X)
	}
}

// TestSteerAgentSlides verifies axis sliding when the direct step is blocked.
func TestSteerAgentSlides(t *testing.T) {
	wall := stubWalk{blocked: func(c r2.Vec) bool { return c.X > 10.5 }}
	snap := AgentSnapshot{Pos: vec(10, 0), Speed: 50, Radius: 5}

	got := SteerAgent(&snap, vec(100, 100), 0.1, wall, testSteerParams())
	if !got.Moved {
		t.Fatal("agent did not slide")
	}
	if got.Pos.X != 10 || got.Pos.Y <= 0 {
		t.Errorf("Pos = %v, want slide along y", got.Pos)
	}

	boxed := stubWalk{blocked: func(r2.Vec) bool { return true }}
	got = SteerAgent(&snap, vec(100, 100), 0.1, boxed, testSteerParams())
	if got.Moved || !got.Blocked || got.Pos != snap.Pos {
		t.Errorf("boxed agent: %+v", got)
	}
}

// TestSteerAgentFollowsWaypoint verifies a waypoint takes priority over the target.
func TestSteerAgentFollowsWaypoint(t *testing.T) {
	snap := AgentSnapshot{
		Pos:         vec(0, 0),
		Speed:       50,
		Radius:      5,
		Target:      vec(0, 100),
		Retarget:    1,
		Waypoint:    vec(100, 0),
		HasWaypoint: true,
	}
	got := SteerAgent(&snap, vec(0, 100), 0.1, stubWalk{}, testSteerParams())

	if !got.Moved || got.Reached {
		t.Fatalf("got %+v, want a move toward the waypoint", got)
	}
	if got.Pos.X <= 0 || got.Pos.Y != 0 {
		t.Errorf("moved to %v, want along +X", got.Pos)
	}
}

// TestSteerAgentReachesWaypoint verifies a reached waypoint hands steering back to the target.
func TestSteerAgentReachesWaypoint(t *testing.T) {
	snap := AgentSnapshot{
		Pos:         vec(98, 0),
		Speed:       50,
		Radius:      5,
		Target:      vec(98, 100),
		Retarget:    1,
		Waypoint:    vec(100, 0),
		HasWaypoint: true,
	}
	got := SteerAgent(&snap, vec(98, 100), 0.1, stubWalk{}, testSteerParams())

	if !got.Reached || !got.Moved {
		t.Fatalf("got %+v, want reached and moved", got)
	}
	if got.Pos.Y <= 0 {
		t.Errorf("moved to %v, want toward the target", got.Pos)
	}
}
