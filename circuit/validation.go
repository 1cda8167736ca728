package circuit

import (
	"msgproc/internal/field"
	"msgproc/message"
	"msgproc/validator"
)

// BuildValidation encodes validator.Validate for msg. The only public wire is
// the verdict; all five message fields are private and range-checked to 32
// bits.
func BuildValidation(f field.Field, msg message.Msg) *Circuit {
	b := newBuilder(f)

	// seq is unused by the predicate but is part of the private record, so it
	// is still bound and range-checked.
	b.input("range.seq", msg.Seq)
	agent := b.input("range.agent", msg.AgentID)
	x := b.input("range.x", msg.XLocation)
	y := b.input("range.y", msg.YLocation)
	checksum := b.input("range.checksum", msg.Checksum)

	sentinel := b.isZero("sentinel", b.sub(wire(agent), b.constant(uint64(validator.SentinelAgentID))))

	low := b.wrapSum32("checksum.sum", agent, x, y)
	checksumOK := b.isZero("checksum.eq", b.sub(wire(checksum), low))

	agentOK := b.and(
		b.geConst("agent.min", agent, validator.MinAgentID),
		b.leConst("agent.max", agent, validator.MaxAgentID),
	)
	xOK := b.and(
		b.geConst("x.min", x, validator.MinXLocation),
		b.leConst("x.max", x, validator.MaxXLocation),
	)
	yOK := b.and(
		b.geConst("y.min", y, validator.MinYLocation),
		b.leConst("y.max", y, validator.MaxYLocation),
	)
	ordered := b.gt("y.gt.x", y, x)

	detail := b.andAll(checksumOK, agentOK, xOK, yOK, ordered)
	verdict := b.or(sentinel, detail)
	b.public(verdict)
	return b.done(verdict)
}

// Accepted reports the verdict carried by a validation circuit.
func (c *Circuit) Accepted() bool {
	return c.OutputValue() == 1
}
