// Package circuit expresses the validation predicate and the watermark
// transition as rank-1 constraint systems over F_q.
//
// Every builder emits the same constraints in the same order whatever the
// input values: values only flow into the witness. A System's Fingerprint is
// therefore a function of the circuit kind alone, which is what a prover
// needs to compile it once.
package circuit

import (
	"encoding/binary"
	"fmt"

	"msgproc/internal/field"

	"golang.org/x/crypto/sha3"
)

// Wire indexes the witness vector. Wire 0 always carries the constant 1.
type Wire int

// One is the constant wire.
const One Wire = 0

// Term is coeff·w[Wire].
type Term struct {
	Wire  Wire
	Coeff field.Elem
}

// LinComb is a sparse linear combination of wires. The empty LinComb is 0.
type LinComb []Term

// Constraint enforces <A,w>·<B,w> = <C,w>.
type Constraint struct {
	Tag     string
	A, B, C LinComb
}

// System is a constraint system together with its public wire layout.
type System struct {
	Q           uint64
	NumWires    int
	Public      []Wire
	Constraints []Constraint
}

// Witness is a full assignment, Witness[0] == 1.
type Witness []field.Elem

func eval(f field.Field, lc LinComb, w Witness) field.Elem {
	var acc field.Elem
	for _, t := range lc {
		acc = f.Add(acc, f.Mul(t.Coeff, w[t.Wire]))
	}
	return acc
}

// Check verifies that w satisfies every constraint of sys.
func Check(sys *System, w Witness) error {
	if sys == nil {
		return fmt.Errorf("nil system")
	}
	if len(w) != sys.NumWires {
		return fmt.Errorf("witness length %d, system has %d wires", len(w), sys.NumWires)
	}
	if w[One] != 1 {
		return fmt.Errorf("constant wire is %d, want 1", w[One])
	}
	for i, v := range w {
		if v >= sys.Q {
			return fmt.Errorf("wire %d not reduced mod q", i)
		}
	}
	f := field.New(sys.Q)
	for i, c := range sys.Constraints {
		a := eval(f, c.A, w)
		b := eval(f, c.B, w)
		if f.Mul(a, b) != eval(f, c.C, w) {
			return fmt.Errorf("constraint %d (%s) unsatisfied", i, c.Tag)
		}
	}
	return nil
}

// PublicValues returns the assignment of the public wires, in layout order.
func (sys *System) PublicValues(w Witness) []field.Elem {
	out := make([]field.Elem, len(sys.Public))
	for i, p := range sys.Public {
		out[i] = w[p]
	}
	return out
}

// Fingerprint digests the shape of the system: modulus, wire count, public
// layout and every constraint with its coefficients.
func (sys *System) Fingerprint() [32]byte {
	h := sha3.New256()
	put := func(v uint64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	putLC := func(lc LinComb) {
		put(uint64(len(lc)))
		for _, t := range lc {
			put(uint64(t.Wire))
			put(t.Coeff)
		}
	}
	put(sys.Q)
	put(uint64(sys.NumWires))
	put(uint64(len(sys.Public)))
	for _, p := range sys.Public {
		put(uint64(p))
	}
	put(uint64(len(sys.Constraints)))
	for _, c := range sys.Constraints {
		put(uint64(len(c.Tag)))
		_, _ = h.Write([]byte(c.Tag))
		putLC(c.A)
		putLC(c.B)
		putLC(c.C)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Circuit is a System with a satisfying witness and a designated output wire.
type Circuit struct {
	Sys     *System
	Witness Witness
	Output  Wire
}

// OutputValue returns the assignment of the output wire.
func (c *Circuit) OutputValue() field.Elem {
	return c.Witness[c.Output]
}

// Check runs Check on the circuit's own witness.
func (c *Circuit) Check() error {
	return Check(c.Sys, c.Witness)
}
