package components

// Body holds physical properties of an entity.
type Body struct {
	Radius float64
}

// Health tracks remaining hit points.
type Health struct {
	Value float64
	Max   float64
}

// Alive reports whether any health remains.
func (h Health) Alive() bool { return h.Value > 0 }

// Apply subtracts damage and reports whether this hit was lethal.
func (h *Health) Apply(damage float64) bool {
	if h.Value <= 0 {
		return false
	}
	h.Value -= damage
	return h.Value <= 0
}
