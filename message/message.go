// Package message defines the field report consumed by the validator and the
// watermark transition, plus its on-disk batch encoding.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"msgproc/internal/field"
	"msgproc/poseidon"
)

// NumFields is the number of private inputs carried by a Msg.
const NumFields = 5

// Msg is one field report. All fields are private inputs.
type Msg struct {
	Seq       uint32 `json:"seq"`
	AgentID   uint32 `json:"agent_id"`
	XLocation uint32 `json:"x"`
	YLocation uint32 `json:"y"`
	Checksum  uint32 `json:"checksum"`
}

// New builds a Msg whose checksum is the native uint32 sum of the details.
func New(seq, agentID, x, y uint32) Msg {
	return Msg{Seq: seq, AgentID: agentID, XLocation: x, YLocation: y, Checksum: agentID + x + y}
}

// Fields returns the inputs in canonical order: seq, agent, x, y, checksum.
func (m Msg) Fields() [NumFields]uint64 {
	return [NumFields]uint64{
		uint64(m.Seq),
		uint64(m.AgentID),
		uint64(m.XLocation),
		uint64(m.YLocation),
		uint64(m.Checksum),
	}
}

// Hash returns the Poseidon digest of the message fields.
func (m Msg) Hash(params *poseidon.Params) (field.Elem, error) {
	fs := m.Fields()
	return poseidon.Hash(fs[:], params)
}

// wireMsg uses pointers so that absent keys can be told apart from zeros.
type wireMsg struct {
	Seq       *uint32 `json:"seq"`
	AgentID   *uint32 `json:"agent_id"`
	XLocation *uint32 `json:"x"`
	YLocation *uint32 `json:"y"`
	Checksum  *uint32 `json:"checksum"`
}

// UnmarshalJSON rejects records with missing fields. A structurally incomplete
// record is a caller error and never reaches the validator.
func (m *Msg) UnmarshalJSON(data []byte) error {
	var w wireMsg
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decode msg: %w", err)
	}
	missing := func(name string, p *uint32) error {
		if p == nil {
			return fmt.Errorf("msg: missing field %q", name)
		}
		return nil
	}
	for _, c := range []struct {
		name string
		p    *uint32
	}{
		{"seq", w.Seq}, {"agent_id", w.AgentID}, {"x", w.XLocation}, {"y", w.YLocation}, {"checksum", w.Checksum},
	} {
		if err := missing(c.name, c.p); err != nil {
			return err
		}
	}
	*m = Msg{
		Seq:       *w.Seq,
		AgentID:   *w.AgentID,
		XLocation: *w.XLocation,
		YLocation: *w.YLocation,
		Checksum:  *w.Checksum,
	}
	return nil
}

// batchFile mirrors the JSON schema stored on disk.
type batchFile struct {
	Messages []Msg `json:"messages"`
}

// LoadBatch reads a batch of messages from a JSON file.
func LoadBatch(path string) ([]Msg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var bf batchFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	return bf.Messages, nil
}

// SaveBatch writes msgs to path as indented JSON.
func SaveBatch(path string, msgs []Msg) error {
	data, err := json.MarshalIndent(batchFile{Messages: msgs}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

// Scenario returns the reference acceptance batch in submission order.
func Scenario() []Msg {
	return []Msg{
		{Seq: 0, AgentID: 123, XLocation: 1234, YLocation: 15001, Checksum: 16236},
		{Seq: 1, AgentID: 123, XLocation: 1234, YLocation: 15001, Checksum: 16236},
		{Seq: 2, AgentID: 123, XLocation: 1234, YLocation: 15001, Checksum: 16236},
		{Seq: 3, AgentID: 123, XLocation: 1234, YLocation: 15001, Checksum: 16235},
		{Seq: 6, AgentID: 3001, XLocation: 1234, YLocation: 15001, Checksum: 19236},
		{Seq: 7, AgentID: 3000, XLocation: 15001, YLocation: 15002, Checksum: 33003},
		{Seq: 8, AgentID: 3000, XLocation: 1000, YLocation: 4999, Checksum: 8999},
		{Seq: 9, AgentID: 3000, XLocation: 1000, YLocation: 20001, Checksum: 24001},
		{Seq: 10, AgentID: 3000, XLocation: 7000, YLocation: 6000, Checksum: 16000},
		{Seq: 1, AgentID: 3000, XLocation: 1000, YLocation: 6000, Checksum: 10000},
		{Seq: 11, AgentID: 0, XLocation: 1000, YLocation: 6000, Checksum: 10000},
	}
}
