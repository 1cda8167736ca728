package circuit

import (
	"msgproc/internal/field"
	"msgproc/watermark"
)

// BuildTransition encodes watermark.Apply. Public wires, in order: previous
// watermark, verdict, next watermark. The sequence number stays private.
//
// The policy is public configuration and selects between two fixed shapes;
// for a given policy the shape does not depend on any value.
func BuildTransition(f field.Field, policy watermark.Policy, prev, seq uint32, verdict bool) *Circuit {
	b := newBuilder(f)

	prevW := b.input("range.prev", prev)
	b.public(prevW)
	v := b.boolean(field.FromBool(verdict))
	b.public(v)
	seqW := b.input("range.seq", seq)

	take := v
	if policy != watermark.PolicySelect {
		take = b.and(v, b.ge("seq.ge.prev", seqW, prevW))
	}
	next := b.selectWire(take, seqW, prevW)
	b.public(next)
	return b.done(next)
}

// NextWatermark reads the output of a transition circuit.
func (c *Circuit) NextWatermark() uint32 {
	return uint32(c.OutputValue())
}
