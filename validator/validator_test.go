package validator

import (
	"math"
	"math/rand"
	"testing"

	"msgproc/message"
)

// valid is a message that sits strictly inside every detail bound.
var valid = message.New(1, 1500, 1000, 6000)

func TestSentinelAcceptsAnything(t *testing.T) {
	cases := []message.Msg{
		{Seq: 11, AgentID: 0, XLocation: 1000, YLocation: 6000, Checksum: 10000},
		{Seq: 1, AgentID: 0, XLocation: math.MaxUint32, YLocation: 0, Checksum: 7},
		{Seq: 2, AgentID: 0, XLocation: 15001, YLocation: 20001, Checksum: 0},
		{Seq: 3, AgentID: 0, XLocation: 9000, YLocation: 9000, Checksum: math.MaxUint32},
	}
	for i, m := range cases {
		if !Validate(m) {
			t.Fatalf("case %d: sentinel message rejected: %+v", i, m)
		}
	}
}

func TestEachDetailConditionIsLoadBearing(t *testing.T) {
	if !Validate(valid) {
		t.Fatalf("baseline message rejected: %+v", valid)
	}
	cases := []struct {
		name string
		msg  message.Msg
	}{
		{"checksum", message.Msg{Seq: 1, AgentID: 1500, XLocation: 1000, YLocation: 6000, Checksum: 8501}},
		{"agent range", message.New(1, 3001, 1000, 6000)},
		{"x range", message.New(1, 1500, 15001, 16000)},
		{"y below", message.New(1, 1500, 1000, 4999)},
		{"y above", message.New(1, 1500, 1000, 20001)},
		{"y not above x", message.New(1, 1500, 7000, 6000)},
	}
	for _, tc := range cases {
		if Validate(tc.msg) {
			t.Fatalf("%s: expected rejection for %+v", tc.name, tc.msg)
		}
	}
}

func TestBoundaryInclusivity(t *testing.T) {
	cases := []struct {
		msg  message.Msg
		want bool
	}{
		{message.New(1, 0, 1000, 6000), true},
		{message.New(1, 3000, 1000, 6000), true},
		{message.New(1, 3001, 1000, 6000), false},
		{message.New(1, 10, 0, 6000), true},
		{message.New(1, 10, 15000, 15001), true},
		{message.New(1, 10, 15001, 16000), false},
		{message.New(1, 10, 1000, 5000), true},
		{message.New(1, 10, 1000, 20000), true},
		{message.New(1, 10, 1000, 4999), false},
		{message.New(1, 10, 1000, 20001), false},
	}
	for _, tc := range cases {
		if got := Validate(tc.msg); got != tc.want {
			t.Fatalf("%+v: got %v want %v", tc.msg, got, tc.want)
		}
	}
}

func TestStrictOrdering(t *testing.T) {
	if Validate(message.New(1, 10, 6000, 6000)) {
		t.Fatalf("y == x must be rejected")
	}
	if !Validate(message.New(1, 10, 5999, 6000)) {
		t.Fatalf("y == x+1 must be accepted")
	}
}

func TestChecksumWrapsAtUint32(t *testing.T) {
	// Out-of-range details reject regardless, but the checksum comparison
	// itself must use the wrapped sum; check it through the helper.
	m := message.Msg{AgentID: 10, XLocation: math.MaxUint32, YLocation: 5, Checksum: 14}
	sum := uint64(m.AgentID + m.XLocation + m.YLocation)
	if eq(uint64(m.Checksum), sum) != 1 {
		t.Fatalf("wrapped checksum not matched: sum=%d", sum)
	}
}

func TestScenarioVerdicts(t *testing.T) {
	want := []bool{false, false, false, false, false, false, false, false, false, true, true}
	for i, m := range message.Scenario() {
		if got := Validate(m); got != want[i] {
			t.Fatalf("scenario %d (%+v): got %v want %v", i, m, got, want[i])
		}
	}
}

func TestComparisonHelpersAgainstOperators(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b2u := func(b bool) uint64 {
		if b {
			return 1
		}
		return 0
	}
	edges := []uint64{0, 1, 2, math.MaxUint32 - 1, math.MaxUint32}
	vals := append([]uint64{}, edges...)
	for i := 0; i < 200; i++ {
		vals = append(vals, uint64(rng.Uint32()))
	}
	for _, a := range vals {
		for _, b := range edges {
			if ge(a, b) != b2u(a >= b) || le(a, b) != b2u(a <= b) || gt(a, b) != b2u(a > b) || eq(a, b) != b2u(a == b) {
				t.Fatalf("helper mismatch for a=%d b=%d", a, b)
			}
		}
	}
}

func reference(m message.Msg) bool {
	if m.AgentID == 0 {
		return true
	}
	return m.Checksum == m.AgentID+m.XLocation+m.YLocation &&
		m.AgentID <= 3000 &&
		m.XLocation <= 15000 &&
		m.YLocation >= 5000 && m.YLocation <= 20000 &&
		m.YLocation > m.XLocation
}

func TestMatchesBranchingReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20000; i++ {
		var m message.Msg
		switch i % 3 {
		case 0:
			m = message.New(rng.Uint32(), uint32(rng.Intn(3200)), uint32(rng.Intn(16000)), uint32(rng.Intn(21000)))
		case 1:
			m = message.Msg{Seq: rng.Uint32(), AgentID: uint32(rng.Intn(3200)), XLocation: uint32(rng.Intn(16000)), YLocation: uint32(rng.Intn(21000)), Checksum: uint32(rng.Intn(40000))}
		default:
			m = message.Msg{Seq: rng.Uint32(), AgentID: rng.Uint32(), XLocation: rng.Uint32(), YLocation: rng.Uint32(), Checksum: rng.Uint32()}
		}
		if Validate(m) != reference(m) {
			t.Fatalf("mismatch for %+v", m)
		}
	}
}
