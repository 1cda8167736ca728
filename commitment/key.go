package commitment

import (
	"fmt"

	"msgproc/internal/field"
	"msgproc/message"

	"github.com/tuneinsight/lattigo/v4/ring"
	"github.com/tuneinsight/lattigo/v4/utils"
)

// Rows is the number of commitment rows. Each message commitment has two
// columns: the packed fields and the blinding polynomial.
const Rows = 2

// Key is the public commitment key, expanded from a seed so that a verifier
// can rebuild it.
type Key struct {
	Ring *ring.Ring
	Seed []byte
	A    Matrix
}

// Opening is the private data that opens a message commitment.
type Opening struct {
	M *ring.Poly // packed fields, NTT domain
	R *ring.Poly // blinding, NTT domain
}

// NewKey builds R_q with N = 2^logN over field.DefaultQ and expands A from
// seed with a keyed PRNG.
func NewKey(logN int, seed []byte) (*Key, error) {
	if logN < 3 || logN > 16 {
		return nil, fmt.Errorf("logN=%d out of range [3,16]", logN)
	}
	ringQ, err := ring.NewRing(1<<logN, []uint64{field.DefaultQ})
	if err != nil {
		return nil, fmt.Errorf("ring: %w", err)
	}
	prng, err := utils.NewKeyedPRNG(seed)
	if err != nil {
		return nil, fmt.Errorf("prng: %w", err)
	}
	us := ring.NewUniformSampler(prng, ringQ)
	A := make(Matrix, Rows)
	for i := range A {
		A[i] = make([]*ring.Poly, 2)
		for j := range A[i] {
			p := ringQ.NewPoly()
			us.Read(p)
			A[i][j] = p
		}
	}
	return &Key{Ring: ringQ, Seed: append([]byte(nil), seed...), A: A}, nil
}

// pack places the message fields in the low coefficients and lifts to NTT.
func (k *Key) pack(msg message.Msg) *ring.Poly {
	p := k.Ring.NewPoly()
	fs := msg.Fields()
	copy(p.Coeffs[0], fs[:])
	k.Ring.NTT(p, p)
	return p
}

// CommitMessage commits to msg with fresh blinding drawn from prng. A nil
// prng uses a randomly keyed one.
func (k *Key) CommitMessage(msg message.Msg, prng utils.PRNG) (Vector, Opening, error) {
	if prng == nil {
		var err error
		if prng, err = utils.NewPRNG(); err != nil {
			return nil, Opening{}, fmt.Errorf("prng: %w", err)
		}
	}
	r := k.Ring.NewPoly()
	ring.NewUniformSampler(prng, k.Ring).Read(r)
	op := Opening{M: k.pack(msg), R: r}
	com, err := Commit(k.Ring, k.A, Vector{op.M, op.R})
	if err != nil {
		return nil, Opening{}, err
	}
	return com, op, nil
}

// VerifyMessage checks that (msg, op) opens com.
func (k *Key) VerifyMessage(com Vector, msg message.Msg, op Opening) error {
	if op.M == nil || op.R == nil {
		return fmt.Errorf("incomplete opening")
	}
	if !k.Ring.Equal(op.M, k.pack(msg)) {
		return fmt.Errorf("opening does not encode the message")
	}
	return Verify(k.Ring, k.A, Vector{op.M, op.R}, com)
}
