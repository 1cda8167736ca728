package batch

import (
	"encoding/hex"
	"fmt"

	"msgproc/internal/field"
	"msgproc/merkle"
	"msgproc/poseidon"
	"msgproc/watermark"
)

// VerifyReport checks a report using public data only: watermark threading,
// the policy's monotonicity, circuit shapes, the transition chain and the
// Merkle root.
func VerifyReport(r *Report, hash *poseidon.Params) error {
	if r == nil {
		return fmt.Errorf("nil report")
	}
	policy := r.Policy
	if policy != watermark.PolicyMonotonic && policy != watermark.PolicySelect {
		return fmt.Errorf("unknown policy %s", policy)
	}
	v, t := Shapes(field.New(hash.Q), policy)
	if r.ValidationShape != hex.EncodeToString(v[:]) {
		return fmt.Errorf("validation shape mismatch")
	}
	if r.TransitionShape != hex.EncodeToString(t[:]) {
		return fmt.Errorf("transition shape mismatch")
	}

	chain, err := chainSeed(r.Initial, hash)
	if err != nil {
		return err
	}
	leaves := make([][]byte, len(r.Statements))
	wm := r.Initial
	for i, s := range r.Statements {
		if s.Index != i {
			return fmt.Errorf("statement %d carries index %d", i, s.Index)
		}
		if s.Prev != wm {
			return fmt.Errorf("statement %d: prev=%d, watermark was %d", i, s.Prev, wm)
		}
		if !s.Verdict && s.Next != s.Prev {
			return fmt.Errorf("statement %d: rejected message moved the watermark", i)
		}
		if policy == watermark.PolicyMonotonic && s.Next < s.Prev {
			return fmt.Errorf("statement %d: watermark decreased under monotonic policy", i)
		}
		com, err := hex.DecodeString(s.Commitment)
		if err != nil || len(com) != 32 {
			return fmt.Errorf("statement %d: bad commitment digest", i)
		}
		var com32 [32]byte
		copy(com32[:], com)
		if chain, err = chainStep(chain, s, com32, hash); err != nil {
			return err
		}
		if s.Chain != chain {
			return fmt.Errorf("statement %d: chain mismatch", i)
		}
		if leaves[i], err = s.Encode(); err != nil {
			return err
		}
		wm = s.Next
	}
	if wm != r.Final {
		return fmt.Errorf("final watermark %d, statements end at %d", r.Final, wm)
	}
	if r.ChainHead != chain {
		return fmt.Errorf("chain head mismatch")
	}
	root := merkle.Build(leaves).Root()
	if r.Root != hex.EncodeToString(root[:]) {
		return fmt.Errorf("merkle root mismatch")
	}
	return nil
}
