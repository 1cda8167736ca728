package circuit

import "msgproc/internal/field"

// width is the bit length of every private input.
const width = 32

// builder records constraints and solves the witness in one pass. Gadgets
// never look at values to decide which constraints to emit.
type builder struct {
	f   field.Field
	sys *System
	w   Witness
}

func newBuilder(f field.Field) *builder {
	return &builder{
		f:   f,
		sys: &System{Q: f.Q(), NumWires: 1},
		w:   Witness{1},
	}
}

func (b *builder) alloc(v field.Elem) Wire {
	b.w = append(b.w, b.f.Reduce(v))
	b.sys.NumWires++
	return Wire(b.sys.NumWires - 1)
}

func (b *builder) public(w Wire) {
	b.sys.Public = append(b.sys.Public, w)
}

func (b *builder) enforce(tag string, x, y, z LinComb) {
	b.sys.Constraints = append(b.sys.Constraints, Constraint{Tag: tag, A: x, B: y, C: z})
}

func (b *builder) val(lc LinComb) field.Elem {
	return eval(b.f, lc, b.w)
}

func (b *builder) done(out Wire) *Circuit {
	return &Circuit{Sys: b.sys, Witness: b.w, Output: out}
}

func wire(w Wire) LinComb { return LinComb{{Wire: w, Coeff: 1}} }

func (b *builder) constant(c uint64) LinComb {
	return LinComb{{Wire: One, Coeff: b.f.Reduce(c)}}
}

// sum concatenates linear combinations; repeated wires are fine.
func sum(parts ...LinComb) LinComb {
	var out LinComb
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func (b *builder) neg(lc LinComb) LinComb {
	out := make(LinComb, len(lc))
	for i, t := range lc {
		out[i] = Term{Wire: t.Wire, Coeff: b.f.Neg(t.Coeff)}
	}
	return out
}

func (b *builder) sub(x, y LinComb) LinComb { return sum(x, b.neg(y)) }

// boolean allocates a wire constrained to {0,1}.
func (b *builder) boolean(v field.Elem) Wire {
	w := b.alloc(v)
	b.enforce("bool", wire(w), b.sub(wire(w), b.constant(1)), nil)
	return w
}

// bits decomposes x into n little-endian bits and ties them back to x. The
// witness is only satisfiable when x < 2^n.
func (b *builder) bits(tag string, x LinComb, n int) []Wire {
	v := b.val(x)
	out := make([]Wire, n)
	var packed LinComb
	for i := 0; i < n; i++ {
		out[i] = b.boolean((v >> uint(i)) & 1)
		packed = append(packed, Term{Wire: out[i], Coeff: b.f.Reduce(1 << uint(i))})
	}
	b.enforce(tag, packed, b.constant(1), x)
	return out
}

// input allocates a private 32-bit value with its range check.
func (b *builder) input(tag string, v uint32) Wire {
	w := b.alloc(uint64(v))
	b.bits(tag, wire(w), width)
	return w
}

// signBit returns bit 32 of d + 2^32, i.e. [d >= 0] for d in (-2^32, 2^32).
func (b *builder) signBit(tag string, d LinComb) Wire {
	bs := b.bits(tag, sum(d, b.constant(1<<width)), width+1)
	return bs[width]
}

// geConst is [a >= k] for a 32-bit wire a.
func (b *builder) geConst(tag string, a Wire, k uint32) Wire {
	return b.signBit(tag, b.sub(wire(a), b.constant(uint64(k))))
}

// leConst is [a <= k] for a 32-bit wire a.
func (b *builder) leConst(tag string, a Wire, k uint32) Wire {
	return b.signBit(tag, b.sub(b.constant(uint64(k)), wire(a)))
}

// gt is [a > c] for 32-bit wires.
func (b *builder) gt(tag string, a, c Wire) Wire {
	return b.signBit(tag, b.sub(b.sub(wire(a), wire(c)), b.constant(1)))
}

// ge is [a >= c] for 32-bit wires.
func (b *builder) ge(tag string, a, c Wire) Wire {
	return b.signBit(tag, b.sub(wire(a), wire(c)))
}

// isZero is [x == 0] using an inverse hint.
func (b *builder) isZero(tag string, x LinComb) Wire {
	v := b.val(x)
	inv := b.alloc(b.f.Inv(v))
	out := b.alloc(field.FromBool(v == 0))
	b.enforce(tag, x, wire(inv), b.sub(b.constant(1), wire(out)))
	b.enforce(tag, x, wire(out), nil)
	return out
}

// wrapSum32 returns (a + c + d) mod 2^32 as a linear combination of bits.
func (b *builder) wrapSum32(tag string, a, c, d Wire) LinComb {
	bs := b.bits(tag, sum(wire(a), wire(c), wire(d)), width+2)
	var low LinComb
	for i := 0; i < width; i++ {
		low = append(low, Term{Wire: bs[i], Coeff: b.f.Reduce(1 << uint(i))})
	}
	return low
}

func (b *builder) and(x, y Wire) Wire {
	out := b.alloc(b.f.Mul(b.w[x], b.w[y]))
	b.enforce("and", wire(x), wire(y), wire(out))
	return out
}

func (b *builder) andAll(ws ...Wire) Wire {
	acc := ws[0]
	for _, w := range ws[1:] {
		acc = b.and(acc, w)
	}
	return acc
}

// or is x + y - x·y on boolean wires.
func (b *builder) or(x, y Wire) Wire {
	m := b.and(x, y)
	out := b.alloc(b.val(b.sub(sum(wire(x), wire(y)), wire(m))))
	b.enforce("or", b.sub(sum(wire(x), wire(y)), wire(m)), b.constant(1), wire(out))
	return out
}

// selectWire is c ? x : y for a boolean wire c.
func (b *builder) selectWire(c, x, y Wire) Wire {
	diff := b.sub(wire(x), wire(y))
	m := b.alloc(b.f.Mul(b.w[c], b.val(diff)))
	b.enforce("select", wire(c), diff, wire(m))
	out := b.alloc(b.f.Add(b.w[y], b.w[m]))
	b.enforce("select", sum(wire(y), wire(m)), b.constant(1), wire(out))
	return out
}
