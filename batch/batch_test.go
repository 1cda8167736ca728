package batch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"msgproc/commitment"
	"msgproc/message"
	"msgproc/poseidon"
	"msgproc/watermark"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

func newRunner(t *testing.T, policy watermark.Policy, opts ...Option) (*Runner, *poseidon.Params) {
	t.Helper()
	key, err := commitment.NewKey(4, []byte("test-ring"))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	hash, err := poseidon.DefaultParams([]byte("test-hash"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	opts = append([]Option{WithLogger(quietLogger()), WithWorkers(3)}, opts...)
	r, err := NewRunner(policy, key, hash, opts...)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	return r, hash
}

func TestRunScenario(t *testing.T) {
	for _, policy := range []watermark.Policy{watermark.PolicyMonotonic, watermark.PolicySelect} {
		r, hash := newRunner(t, policy)
		msgs := message.Scenario()
		rep, err := r.Run(context.Background(), watermark.Initial, msgs)
		if err != nil {
			t.Fatalf("%v run: %v", policy, err)
		}
		if rep.Final != 11 {
			t.Fatalf("%v final=%d want 11", policy, rep.Final)
		}
		want := watermark.Trace(policy, watermark.Initial, msgs)
		got := rep.Trajectory()
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%v step %d: got %d want %d", policy, i, got[i], want[i])
			}
		}
		if len(rep.Openings) != len(msgs) {
			t.Fatalf("openings=%d want %d", len(rep.Openings), len(msgs))
		}
		if err := VerifyReport(rep, hash); err != nil {
			t.Fatalf("%v verify: %v", policy, err)
		}
	}
}

func TestRunContinuesFromStoredWatermark(t *testing.T) {
	r, hash := newRunner(t, watermark.PolicyMonotonic)
	msgs := []message.Msg{message.New(3, 10, 100, 5000), message.New(40, 10, 100, 5000)}
	rep, err := r.Run(context.Background(), 20, msgs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Statements[0].Next != 20 || rep.Final != 40 {
		t.Fatalf("unexpected trajectory %v", rep.Trajectory())
	}
	if err := VerifyReport(rep, hash); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyReportDetectsTampering(t *testing.T) {
	r, hash := newRunner(t, watermark.PolicyMonotonic)
	msgs := append(message.Scenario(), message.New(30, 1, 2, 5000))
	tamper := []func(*Report){
		func(rep *Report) { rep.Final++ },
		func(rep *Report) { rep.Statements[3].Next = 99 },
		func(rep *Report) { rep.Statements[10].Verdict = false },
		func(rep *Report) { rep.Statements[2].Commitment = rep.Statements[1].Commitment },
		func(rep *Report) { rep.Statements[0].Chain++ },
		func(rep *Report) { rep.Root = rep.ValidationShape },
		func(rep *Report) { rep.Policy = watermark.PolicySelect },
		func(rep *Report) { rep.Policy = watermark.Policy(7) },
		func(rep *Report) { rep.Statements = rep.Statements[1:] },
	}
	for i, fn := range tamper {
		rep, err := r.Run(context.Background(), watermark.Initial, msgs)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		fn(rep)
		if err := VerifyReport(rep, hash); err == nil {
			t.Fatalf("tamper %d not detected", i)
		}
	}
}

func TestCommitmentsHideRepeatedMessages(t *testing.T) {
	r, _ := newRunner(t, watermark.PolicyMonotonic)
	m := message.New(5, 1, 2, 5000)
	rep, err := r.Run(context.Background(), 0, []message.Msg{m, m})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Statements[0].Commitment == rep.Statements[1].Commitment {
		t.Fatalf("identical messages produced identical commitments")
	}
	if rep.Statements[0].Next != rep.Statements[1].Next {
		t.Fatalf("replaying a valid message changed the watermark")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	r, _ := newRunner(t, watermark.PolicyMonotonic)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, 0, message.Scenario()); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "test")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	r, _ := newRunner(t, watermark.PolicyMonotonic, WithMetrics(m))
	msgs := message.Scenario()
	if _, err := r.Run(context.Background(), 0, msgs); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := testutil.ToFloat64(m.processed); got != float64(len(msgs)) {
		t.Fatalf("processed=%f want %d", got, len(msgs))
	}
	if got := testutil.ToFloat64(m.watermark); got != 11 {
		t.Fatalf("watermark gauge=%f want 11", got)
	}
	if n := testutil.CollectAndCount(m.build); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
	if _, err := NewMetrics(reg, "test"); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestReportRoundTrip(t *testing.T) {
	r, hash := newRunner(t, watermark.PolicySelect)
	rep, err := r.Run(context.Background(), 0, message.Scenario())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	path := filepath.Join(t.TempDir(), "report.json")
	if err := SaveReport(path, rep); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Openings != nil {
		t.Fatalf("openings leaked into the report file")
	}
	if loaded.Policy != watermark.PolicySelect {
		t.Fatalf("policy=%v want select", loaded.Policy)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(raw), `"policy": "select"`) {
		t.Fatalf("policy not written by name")
	}
	if err := VerifyReport(loaded, hash); err != nil {
		t.Fatalf("verify loaded: %v", err)
	}
}

func TestNewRunnerRejectsMismatchedModulus(t *testing.T) {
	key, err := commitment.NewKey(4, nil)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	small, err := poseidon.Derive(nil, 101, 3, 2, 4, 1, 3)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if _, err := NewRunner(watermark.PolicyMonotonic, key, small); err == nil {
		t.Fatalf("expected modulus mismatch error")
	}
}
