// Package validator decides whether a field report is well formed.
//
// Validate is a single boolean expression over comparison bits: every
// condition is evaluated for every input, nothing returns early, and no
// intermediate result is observable. circuit.BuildValidation encodes the same
// expression as constraints.
package validator

import "msgproc/message"

// Inclusive detail bounds.
const (
	MinAgentID   uint32 = 0
	MaxAgentID   uint32 = 3000
	MinXLocation uint32 = 0
	MaxXLocation uint32 = 15000
	MinYLocation uint32 = 5000
	MaxYLocation uint32 = 20000

	// SentinelAgentID marks a report whose details are not checked.
	SentinelAgentID uint32 = 0
)

// Validate reports whether msg is accepted: the sentinel path OR the detail
// path, both computed unconditionally.
func Validate(msg message.Msg) bool {
	return verdict(msg) == 1
}

func verdict(msg message.Msg) uint64 {
	a := uint64(msg.AgentID)
	x := uint64(msg.XLocation)
	y := uint64(msg.YLocation)
	sum := uint64(msg.AgentID + msg.XLocation + msg.YLocation)

	sentinel := eq(a, uint64(SentinelAgentID))

	checksum := eq(uint64(msg.Checksum), sum)
	agentOK := ge(a, uint64(MinAgentID)) & le(a, uint64(MaxAgentID))
	xOK := ge(x, uint64(MinXLocation)) & le(x, uint64(MaxXLocation))
	yOK := ge(y, uint64(MinYLocation)) & le(y, uint64(MaxYLocation))
	ordered := gt(y, x)

	detail := checksum & agentOK & xOK & yOK & ordered
	return sentinel | detail
}

// The helpers below take 32-bit values widened to 64 bits and return 0 or 1.
// The sign bit of a 64-bit difference carries the comparison.

func ge(a, b uint64) uint64 { return 1 ^ ((a - b) >> 63) }

func le(a, b uint64) uint64 { return 1 ^ ((b - a) >> 63) }

func gt(a, b uint64) uint64 { return (b - a) >> 63 }

func eq(a, b uint64) uint64 { return le(a, b) & ge(a, b) }
