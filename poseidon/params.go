package poseidon

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"msgproc/internal/field"

	"golang.org/x/crypto/sha3"
)

// Params holds the public parameters of the permutation. Matrices and round
// constants are stored reduced mod Q.
type Params struct {
	Q    uint64     // field modulus
	D    uint64     // S-box exponent
	T    int        // state width
	Rate int        // sponge rate (T - capacity)
	RF   int        // number of external rounds (must be even)
	RP   int        // number of internal rounds
	ME   [][]uint64 // external round MDS matrix (T x T)
	MI   [][]uint64 // internal round matrix (T x T)
	CExt [][]uint64 // external round constants [RF][T]
	CInt []uint64   // internal round constants [RP]
}

// Validate performs consistency checks on the parameter set.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	if p.Q < 3 {
		return fmt.Errorf("q must be >=3")
	}
	if p.D < 3 {
		return fmt.Errorf("d must be >=3")
	}
	if gcd(p.D, p.Q-1) != 1 {
		return fmt.Errorf("x^%d is not a permutation of F_%d", p.D, p.Q)
	}
	if p.T < 2 {
		return fmt.Errorf("t must be >=2")
	}
	if p.Rate <= 0 || p.Rate >= p.T {
		return fmt.Errorf("rate=%d must lie in [1, t)", p.Rate)
	}
	if p.RF <= 0 || p.RF%2 != 0 {
		return fmt.Errorf("RF must be even and >0")
	}
	if p.RP <= 0 {
		return fmt.Errorf("RP must be >0")
	}
	if err := checkMatrix(p.ME, p.T); err != nil {
		return fmt.Errorf("ME: %w", err)
	}
	if err := checkMatrix(p.MI, p.T); err != nil {
		return fmt.Errorf("MI: %w", err)
	}
	if len(p.CExt) != p.RF {
		return fmt.Errorf("CExt rows=%d want RF=%d", len(p.CExt), p.RF)
	}
	for i, row := range p.CExt {
		if len(row) != p.T {
			return fmt.Errorf("CExt[%d] len=%d want %d", i, len(row), p.T)
		}
	}
	if len(p.CInt) != p.RP {
		return fmt.Errorf("CInt len=%d want RP=%d", len(p.CInt), p.RP)
	}
	return nil
}

func checkMatrix(m [][]uint64, t int) error {
	if len(m) != t {
		return fmt.Errorf("rows=%d want %d", len(m), t)
	}
	for i := range m {
		if len(m[i]) != t {
			return fmt.Errorf("row %d len=%d want %d", i, len(m[i]), t)
		}
	}
	return nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Derive expands a full parameter set from seed with SHAKE-256. Round
// constants are squeezed 8 bytes at a time and reduced mod q; ME is the Cauchy
// matrix 1/(x_i + y_j) with x_i = i, y_j = t + j, which is MDS over any prime
// field larger than 2t. MI is 1 + diag(mu) with mu squeezed from the stream.
func Derive(seed []byte, q uint64, t, rate, rf, rp int, d uint64) (*Params, error) {
	if uint64(2*t) >= q {
		return nil, fmt.Errorf("q=%d too small for width %d", q, t)
	}
	f := field.New(q)
	xof := sha3.NewShake256()
	_, _ = xof.Write([]byte("msgproc/poseidon/v1"))
	_, _ = xof.Write(seed)
	var hdr [32]byte
	binary.LittleEndian.PutUint64(hdr[0:], q)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(t))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(rf))
	binary.LittleEndian.PutUint64(hdr[24:], uint64(rp))
	_, _ = xof.Write(hdr[:])
	next := func() uint64 {
		var buf [8]byte
		_, _ = xof.Read(buf[:])
		return binary.LittleEndian.Uint64(buf[:]) % q
	}

	p := &Params{Q: q, D: d, T: t, Rate: rate, RF: rf, RP: rp}
	p.CExt = make([][]uint64, rf)
	for r := range p.CExt {
		p.CExt[r] = make([]uint64, t)
		for i := range p.CExt[r] {
			p.CExt[r][i] = next()
		}
	}
	p.CInt = make([]uint64, rp)
	for r := range p.CInt {
		p.CInt[r] = next()
	}
	p.ME = make([][]uint64, t)
	for i := 0; i < t; i++ {
		p.ME[i] = make([]uint64, t)
		for j := 0; j < t; j++ {
			p.ME[i][j] = f.Inv(uint64(i) + uint64(t+j))
		}
	}
	p.MI = make([][]uint64, t)
	for i := 0; i < t; i++ {
		p.MI[i] = make([]uint64, t)
		for j := 0; j < t; j++ {
			p.MI[i][j] = 1
		}
		mu := next()
		for mu == 0 || mu == q-1 {
			mu = next()
		}
		p.MI[i][i] = f.Add(1, mu)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultParams returns the width-6 instance over field.DefaultQ used for
// message digests and the transition chain.
func DefaultParams(seed []byte) (*Params, error) {
	return Derive(seed, field.DefaultQ, 6, 5, 8, 22, 7)
}

// LoadParams decodes parameters from JSON and validates them.
func LoadParams(r io.Reader) (*Params, error) {
	dec := json.NewDecoder(r)
	var p Params
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadParamsFromFile opens path, decodes JSON parameters, and validates them.
func LoadParamsFromFile(path string) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open params file: %w", err)
	}
	defer f.Close()
	return LoadParams(f)
}
