// Package watermark folds validator verdicts into the running watermark: the
// highest accepted message sequence number.
package watermark

import (
	"fmt"
	"strings"

	"msgproc/message"
	"msgproc/validator"
)

// Initial is the watermark value before any message has been applied.
const Initial uint32 = 0

// Policy selects how an accepted message moves the watermark.
type Policy int

const (
	// PolicyMonotonic clamps: an accepted message never lowers the watermark.
	PolicyMonotonic Policy = iota
	// PolicySelect overwrites the watermark with any accepted sequence number,
	// even a lower one.
	PolicySelect
)

func (p Policy) String() string {
	switch p {
	case PolicyMonotonic:
		return "monotonic"
	case PolicySelect:
		return "select"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration string to a Policy. The empty string is
// the monotonic default.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monotonic", "max":
		return PolicyMonotonic, nil
	case "select", "raw":
		return PolicySelect, nil
	default:
		return 0, fmt.Errorf("unknown watermark policy %q", s)
	}
}

// MarshalText and UnmarshalText store a Policy by name in config, state and
// report files.
func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Apply returns the next watermark. A rejected message leaves current
// unchanged; an accepted one is folded in according to the policy. Unknown
// policies behave as PolicyMonotonic.
func Apply(policy Policy, current uint32, msg message.Msg, verdict bool) uint32 {
	if !verdict {
		return current
	}
	if policy == PolicySelect {
		return msg.Seq
	}
	return max(current, msg.Seq)
}

// Step validates msg and applies the verdict.
func Step(policy Policy, current uint32, msg message.Msg) (uint32, bool) {
	ok := validator.Validate(msg)
	return Apply(policy, current, msg, ok), ok
}

// Fold threads the watermark through msgs in order and returns the final
// value. msgs are never reordered.
func Fold(policy Policy, initial uint32, msgs []message.Msg) uint32 {
	wm := initial
	for _, m := range msgs {
		wm, _ = Step(policy, wm, m)
	}
	return wm
}

// Trace is Fold that also returns the watermark after each message.
func Trace(policy Policy, initial uint32, msgs []message.Msg) []uint32 {
	out := make([]uint32, len(msgs))
	wm := initial
	for i, m := range msgs {
		wm, _ = Step(policy, wm, m)
		out[i] = wm
	}
	return out
}
