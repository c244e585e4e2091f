package input

// PositionReader is a quadrature decoder, such as
// encoders.QuadratureDevice from tinygo.org/x/drivers.
type PositionReader interface {
	Position() int
}

// Rotary reports encoder movement since the previous Update
type Rotary struct {
	enc  PositionReader
	last int
}

// NewRotary starts counting from the encoder's current position
func NewRotary(enc PositionReader) *Rotary {
	return &Rotary{enc: enc, last: enc.Position()}
}

// Update returns the signed delta, clockwise positive
func (r *Rotary) Update() (int, bool) {
	pos := r.enc.Position()
	delta := pos - r.last
	r.last = pos
	return delta, delta != 0
}
