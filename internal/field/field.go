// Package field implements arithmetic in the prime field F_q that carries the
// validation circuits, the Poseidon permutation and the ring commitment.
package field

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v4/ring"
)

// DefaultQ is the NTT-friendly prime 2^61 - 2^21 + 1. It is large enough that
// every 32-bit quantity, and every sum or difference of three of them, embeds
// without wrapping.
const DefaultQ uint64 = 0x1fffffffffe00001

// Elem is a canonical representative in [0, q).
type Elem = uint64

// Field exposes modular arithmetic over F_q using Barrett reduction.
type Field struct {
	q    uint64
	bred []uint64
}

// New constructs a Field with modulus q. q must be an odd prime below 2^62.
func New(q uint64) Field {
	if q < 3 || q&1 == 0 {
		panic(fmt.Sprintf("field: invalid modulus %d", q))
	}
	if q>>62 != 0 {
		panic("field: modulus must fit in 62 bits")
	}
	return Field{q: q, bred: ring.BRedParams(q)}
}

// Default returns the field over DefaultQ.
func Default() Field {
	return New(DefaultQ)
}

func (f Field) Q() uint64 { return f.q }

// Reduce maps an arbitrary uint64 into [0, q).
func (f Field) Reduce(a uint64) Elem {
	return a % f.q
}

func (f Field) Add(a, b Elem) Elem {
	v := a + b
	if v >= f.q {
		v -= f.q
	}
	return v
}

func (f Field) Sub(a, b Elem) Elem {
	if a >= b {
		return a - b
	}
	return a + f.q - b
}

func (f Field) Neg(a Elem) Elem {
	if a == 0 {
		return 0
	}
	return f.q - a
}

func (f Field) Mul(a, b Elem) Elem {
	return ring.BRed(a, b, f.q, f.bred)
}

// Pow raises a to e by square-and-multiply.
func (f Field) Pow(a Elem, e uint64) Elem {
	base := a
	var res Elem = 1
	for e > 0 {
		if e&1 == 1 {
			res = f.Mul(res, base)
		}
		base = f.Mul(base, base)
		e >>= 1
	}
	return res
}

// Inv returns a^{-1} via Fermat, and 0 for a == 0. The zero case is what the
// is-zero gadget expects as its hint.
func (f Field) Inv(a Elem) Elem {
	if a == 0 {
		return 0
	}
	return ring.ModExp(a, f.q-2, f.q)
}

// FromBool embeds a boolean as 0 or 1.
func FromBool(b bool) Elem {
	if b {
		return 1
	}
	return 0
}
