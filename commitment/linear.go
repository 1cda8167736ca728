// Package commitment binds the private fields of a message to a public value
// with a module-lattice commitment Com = A·[m || r] over R_q = Z_q[X]/(X^N+1).
package commitment

import (
	"encoding/binary"
	"fmt"

	"github.com/tuneinsight/lattigo/v4/ring"
	"golang.org/x/crypto/sha3"
)

// Matrix is a row-major matrix of NTT-domain polynomials.
type Matrix [][]*ring.Poly

// Vector is a helper alias for a slice of polynomials.
type Vector []*ring.Poly

// shape returns the column count of A after checking it is rectangular and
// fully populated.
func (A Matrix) shape() (int, error) {
	if len(A) == 0 || len(A[0]) == 0 {
		return 0, fmt.Errorf("empty matrix")
	}
	cols := len(A[0])
	for i, row := range A {
		if len(row) != cols {
			return 0, fmt.Errorf("ragged matrix at row %d", i)
		}
		for j, p := range row {
			if p == nil {
				return 0, fmt.Errorf("nil matrix entry at row %d col %d", i, j)
			}
		}
	}
	return cols, nil
}

// Commit returns A·vec. Entries of A and vec must share ringQ and the NTT
// domain.
func Commit(ringQ *ring.Ring, A Matrix, vec Vector) (Vector, error) {
	if ringQ == nil {
		return nil, fmt.Errorf("nil ring")
	}
	cols, err := A.shape()
	if err != nil {
		return nil, err
	}
	if cols != len(vec) {
		return nil, fmt.Errorf("dimension mismatch: cols=%d vec=%d", cols, len(vec))
	}
	for j, v := range vec {
		if v == nil {
			return nil, fmt.Errorf("nil vector entry %d", j)
		}
	}
	com := make(Vector, len(A))
	for i, row := range A {
		com[i] = ringQ.NewPoly()
		for j, a := range row {
			ringQ.MulCoeffsAndAdd(a, vec[j], com[i])
		}
	}
	return com, nil
}

// Verify reports whether com opens to vec under A.
func Verify(ringQ *ring.Ring, A Matrix, vec, com Vector) error {
	want, err := Commit(ringQ, A, vec)
	if err != nil {
		return err
	}
	if len(com) != len(want) {
		return fmt.Errorf("commitment length mismatch: got %d want %d", len(com), len(want))
	}
	for i, c := range com {
		if c == nil || !ringQ.Equal(want[i], c) {
			return fmt.Errorf("commitment mismatch at row %d", i)
		}
	}
	return nil
}

// Digest is SHA3-256 over the coefficients of com, row by row.
func Digest(com Vector) [32]byte {
	h := sha3.New256()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(com)))
	_, _ = h.Write(buf[:])
	for _, p := range com {
		for _, level := range p.Coeffs {
			for _, c := range level {
				binary.LittleEndian.PutUint64(buf[:], c)
				_, _ = h.Write(buf[:])
			}
		}
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
