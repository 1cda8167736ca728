// Package poseidon implements an arithmetisation-friendly hash over F_q: a
// Poseidon2-style permutation wrapped in a sponge.
package poseidon

import (
	"fmt"

	"msgproc/internal/field"
)

// Hash absorbs elems into a sponge with params.Rate lanes and squeezes one
// element. The last capacity lane is initialised with the input length, which
// keeps inputs of different lengths apart without padding.
func Hash(elems []field.Elem, params *Params) (field.Elem, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	f := field.New(params.Q)
	state := make([]field.Elem, params.T)
	state[params.T-1] = f.Reduce(uint64(len(elems)))
	for off := 0; ; off += params.Rate {
		end := off + params.Rate
		if end > len(elems) {
			end = len(elems)
		}
		for i, e := range elems[off:end] {
			if e >= params.Q {
				return 0, fmt.Errorf("element %d not reduced mod q", off+i)
			}
			state[i] = f.Add(state[i], e)
		}
		PermuteInPlace(state, params)
		if end == len(elems) {
			break
		}
	}
	return state[0], nil
}
