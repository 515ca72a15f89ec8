package components

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestProjectileAdvance(t *testing.T) {
	p := Projectile{Pos: r2.Vec{X: 1, Y: 2}, Vel: r2.Vec{X: 10, Y: -4}, TTL: 1}
	p.Advance(0.5)

	if p.Prev != (r2.Vec{X: 1, Y: 2}) {
		t.Errorf("Prev = %v, want {1 2}", p.Prev)
	}
	if p.Pos != (r2.Vec{X: 6, Y: 0}) {
		t.Errorf("Pos = %v, want {6 0}", p.Pos)
	}
	if p.TTL != 0.5 {
		t.Errorf("TTL = %v, want 0.5", p.TTL)
	}

	p.Reset()
	if p != (Projectile{Gen: 1}) {
		t.Errorf("Reset left %+v", p)
	}
	p.Reset()
	if p.Gen != 2 {
		t.Errorf("Gen = %d after two resets, want 2", p.Gen)
	}
}

func TestHealthApply(t *testing.T) {
	h := Health{Value: 50, Max: 50}
	if h.Apply(20) {
		t.Error("non-lethal hit reported lethal")
	}
	if !h.Apply(30) {
		t.Error("lethal hit not reported")
	}
	if h.Apply(10) {
		t.Error("hit on dead agent reported lethal again")
	}
	if h.Alive() {
		t.Error("dead agent reports alive")
	}
}
