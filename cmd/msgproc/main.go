package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"msgproc/batch"
	"msgproc/commitment"
	"msgproc/config"
	"msgproc/message"
	"msgproc/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func usage() {
	fmt.Println(`usage: msgproc <gen|run|verify|plot> [options]

Subcommands:
  gen      Write the reference scenario batch
           Flags:
             -out <path>       output batch file (default: batch.json)

  run      Validate a batch, fold it into the stored watermark, write a report
           Flags:
             -config <path>    YAML config (optional; defaults otherwise)
             -in <path>        batch file (required)
             -report <path>    report output (default: report.json)
             -metrics-out <p>  write Prometheus text metrics to this file

  verify   Check a report's threading, chain and Merkle root
           Flags:
             -config <path>    YAML config used for the run
             -report <path>    report file (default: report.json)

  plot     Render a report's watermark trajectory as HTML
           Flags:
             -report <path>    report file (default: report.json)
             -out <path>       HTML output (default: watermark.html)`)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "gen":
		err = runGen(os.Args[2:])
	case "run":
		err = runBatch(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "plot":
		err = runPlot(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		logrus.WithField("cmd", os.Args[1]).Fatalf("%v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	out := fs.String("out", "batch.json", "output batch file")
	_ = fs.Parse(args)
	if err := message.SaveBatch(*out, message.Scenario()); err != nil {
		return err
	}
	logrus.WithField("path", *out).Info("scenario batch written")
	return nil
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config")
	in := fs.String("in", "", "batch file")
	reportPath := fs.String("report", "report.json", "report output")
	metricsOut := fs.String("metrics-out", "", "Prometheus textfile output")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	policy := cfg.Policy

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	msgs, err := message.LoadBatch(*in)
	if err != nil {
		return err
	}
	key, err := commitment.NewKey(cfg.Ring.LogN, []byte(cfg.Ring.Seed))
	if err != nil {
		return fmt.Errorf("commitment key: %w", err)
	}
	hash, err := cfg.HashParams()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	metrics, err := batch.NewMetrics(reg, cfg.Metrics.Namespace)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	runner, err := batch.NewRunner(policy, key, hash,
		batch.WithWorkers(cfg.Workers),
		batch.WithLogger(logrus.WithField("component", "batch")),
		batch.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	st := store.NewFileStore(cfg.StatePath)
	state, err := st.Load(ctx)
	if err != nil {
		return err
	}
	if err := state.CheckPolicy(policy); err != nil {
		return fmt.Errorf("%s: %w", st.Path(), err)
	}
	report, err := runner.Run(ctx, state.Watermark, msgs)
	if err != nil {
		return err
	}
	if err := batch.SaveReport(*reportPath, report); err != nil {
		return err
	}
	if err := st.Save(ctx, store.State{Watermark: report.Final, Policy: &policy, LastRun: report.RunID}); err != nil {
		return err
	}
	if *metricsOut != "" {
		if err := prometheus.WriteToTextfile(*metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	logrus.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"watermark": report.Final,
		"report":    *reportPath,
		"state":     st.Path(),
	}).Info("watermark persisted")
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config")
	reportPath := fs.String("report", "report.json", "report file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	hash, err := cfg.HashParams()
	if err != nil {
		return err
	}
	report, err := batch.LoadReport(*reportPath)
	if err != nil {
		return err
	}
	if err := batch.VerifyReport(report, hash); err != nil {
		return fmt.Errorf("report %s: %w", report.RunID, err)
	}
	logrus.WithFields(logrus.Fields{"run_id": report.RunID, "final": report.Final}).Info("report verified")
	return nil
}
