package batch

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"msgproc/commitment"
	"msgproc/internal/field"
	"msgproc/poseidon"
	"msgproc/watermark"
)

// Statement is the public record of one processed message: the watermark
// before and after, the verdict, and the commitment to the private fields.
type Statement struct {
	Index      int    `json:"index"`
	Prev       uint32 `json:"prev"`
	Next       uint32 `json:"next"`
	Verdict    bool   `json:"verdict"`
	Commitment string `json:"commitment"`
	Chain      uint64 `json:"chain"`
}

// Encode is the Merkle leaf encoding of s.
func (s Statement) Encode() ([]byte, error) {
	com, err := hex.DecodeString(s.Commitment)
	if err != nil {
		return nil, fmt.Errorf("statement %d: commitment: %w", s.Index, err)
	}
	if len(com) != 32 {
		return nil, fmt.Errorf("statement %d: commitment length %d", s.Index, len(com))
	}
	buf := make([]byte, 0, 8+4+4+1+32+8)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Index))
	buf = binary.LittleEndian.AppendUint32(buf, s.Prev)
	buf = binary.LittleEndian.AppendUint32(buf, s.Next)
	buf = append(buf, byte(field.FromBool(s.Verdict)))
	buf = append(buf, com...)
	buf = binary.LittleEndian.AppendUint64(buf, s.Chain)
	return buf, nil
}

// Report summarises one batch run. Only public data is serialised.
type Report struct {
	RunID           string           `json:"run_id"`
	Policy          watermark.Policy `json:"policy"`
	Initial         uint32           `json:"initial"`
	Final           uint32           `json:"final"`
	Root            string           `json:"root"`
	ChainHead       uint64           `json:"chain_head"`
	ValidationShape string           `json:"validation_shape"`
	TransitionShape string           `json:"transition_shape"`
	CreatedAt       time.Time        `json:"created_at"`
	Statements      []Statement      `json:"statements"`

	// Openings stay in memory for the prover and are never written out.
	Openings []commitment.Opening `json:"-"`
}

// Trajectory returns the watermark after each statement.
func (r *Report) Trajectory() []uint32 {
	out := make([]uint32, len(r.Statements))
	for i, s := range r.Statements {
		out[i] = s.Next
	}
	return out
}

// chainSeed starts the transition chain from the initial watermark.
func chainSeed(initial uint32, params *poseidon.Params) (field.Elem, error) {
	return poseidon.Hash([]field.Elem{uint64(initial)}, params)
}

// chainStep absorbs one statement into the chain.
func chainStep(prevChain field.Elem, s Statement, com [32]byte, params *poseidon.Params) (field.Elem, error) {
	comElem := binary.LittleEndian.Uint64(com[:8]) % params.Q
	return poseidon.Hash([]field.Elem{
		prevChain,
		uint64(s.Prev),
		field.FromBool(s.Verdict),
		uint64(s.Next),
		comElem,
	}, params)
}

// SaveReport writes r as indented JSON.
func SaveReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}
