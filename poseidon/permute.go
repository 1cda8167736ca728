package poseidon

import "msgproc/internal/field"

// round is one step of the schedule: full rounds add a constant to every lane
// and mix with ME; partial rounds touch lane 0 only and mix with MI.
type round struct {
	full bool
	rc   []uint64
	mix  [][]uint64
}

// schedule lays out RF/2 full rounds, RP partial rounds, then RF/2 full rounds.
func (p *Params) schedule() []round {
	rs := make([]round, 0, p.RF+p.RP)
	half := p.RF / 2
	for r := 0; r < half; r++ {
		rs = append(rs, round{full: true, rc: p.CExt[r], mix: p.ME})
	}
	for r := 0; r < p.RP; r++ {
		rs = append(rs, round{rc: p.CInt[r : r+1], mix: p.MI})
	}
	for r := half; r < p.RF; r++ {
		rs = append(rs, round{full: true, rc: p.CExt[r], mix: p.ME})
	}
	return rs
}

// PermuteInPlace applies the permutation to state; len(state) must be params.T.
func PermuteInPlace(state []field.Elem, params *Params) {
	f := field.New(params.Q)
	scratch := make([]field.Elem, len(state))
	for _, r := range params.schedule() {
		lanes := len(state)
		if !r.full {
			lanes = 1
		}
		for i := 0; i < lanes; i++ {
			state[i] = f.Pow(f.Add(state[i], f.Reduce(r.rc[i])), params.D)
		}
		mix(f, r.mix, state, scratch)
	}
}

// mix sets state = m·state, using scratch as the output buffer.
func mix(f field.Field, m [][]uint64, state, scratch []field.Elem) {
	for i, row := range m {
		var acc field.Elem
		for j, c := range row {
			acc = f.Add(acc, f.Mul(f.Reduce(c), state[j]))
		}
		scratch[i] = acc
	}
	copy(state, scratch)
}
