package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"msgproc/batch"
	"msgproc/commitment"
	"msgproc/message"
	"msgproc/poseidon"
	"msgproc/store"
	"msgproc/watermark"

	"github.com/sirupsen/logrus"
)

func TestRunPersistsWatermarkAndReport(t *testing.T) {
	logrus.SetOutput(io.Discard)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	statePath := filepath.Join(dir, "state", "wm.json")
	cfg := "state_path: " + statePath + "\nworkers: 2\nlog:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	batchPath := filepath.Join(dir, "batch.json")
	reportPath := filepath.Join(dir, "report.json")
	metricsPath := filepath.Join(dir, "metrics.prom")

	if err := runGen([]string{"-out", batchPath}); err != nil {
		t.Fatalf("gen: %v", err)
	}
	if err := runBatch([]string{"-config", cfgPath, "-in", batchPath, "-report", reportPath, "-metrics-out", metricsPath}); err != nil {
		t.Fatalf("run: %v", err)
	}
	st, err := store.NewFileStore(statePath).Load(context.Background())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if st.Watermark != 11 {
		t.Fatalf("persisted watermark=%d want 11", st.Watermark)
	}
	if err := runVerify([]string{"-config", cfgPath, "-report", reportPath}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	raw, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(raw), "msgproc_watermark 11") {
		t.Fatalf("metrics file missing watermark gauge:\n%s", raw)
	}

	// A second run of a lower batch must not lower the monotonic watermark.
	if err := message.SaveBatch(batchPath, []message.Msg{message.New(5, 1, 1, 5000)}); err != nil {
		t.Fatalf("save batch: %v", err)
	}
	if err := runBatch([]string{"-config", cfgPath, "-in", batchPath, "-report", reportPath}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	st, _ = store.NewFileStore(statePath).Load(context.Background())
	if st.Watermark != 11 {
		t.Fatalf("watermark after lower batch=%d want 11", st.Watermark)
	}
	if st.Policy == nil || *st.Policy != watermark.PolicyMonotonic {
		t.Fatalf("stored policy=%v want monotonic", st.Policy)
	}

	// Switching the policy under an existing watermark is refused.
	if err := os.WriteFile(cfgPath, []byte(cfg+"policy: raw\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	err = runBatch([]string{"-config", cfgPath, "-in", batchPath, "-report", reportPath})
	if !errors.Is(err, store.ErrPolicyMismatch) {
		t.Fatalf("run under switched policy: got %v want ErrPolicyMismatch", err)
	}
	st, _ = store.NewFileStore(statePath).Load(context.Background())
	if st.Watermark != 11 {
		t.Fatalf("watermark after refused run=%d want 11", st.Watermark)
	}
}

func TestRenderTrajectory(t *testing.T) {
	key, err := commitment.NewKey(4, []byte("plot"))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	hash, err := poseidon.DefaultParams([]byte("plot"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	l := logrus.New()
	l.Out = io.Discard
	r, err := batch.NewRunner(watermark.PolicyMonotonic, key, hash, batch.WithLogger(logrus.NewEntry(l)))
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	rep, err := r.Run(context.Background(), 0, message.Scenario())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var buf bytes.Buffer
	if err := renderTrajectory(&buf, rep); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Watermark trajectory") {
		t.Fatalf("rendered page lacks title")
	}
}
