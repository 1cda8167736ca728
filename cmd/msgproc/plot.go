package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"msgproc/batch"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/sirupsen/logrus"
)

func runPlot(args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	reportPath := fs.String("report", "report.json", "report file")
	out := fs.String("out", "watermark.html", "HTML output")
	_ = fs.Parse(args)

	report, err := batch.LoadReport(*reportPath)
	if err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer f.Close()
	if err := renderTrajectory(f, report); err != nil {
		return err
	}
	logrus.WithField("path", *out).Info("trajectory written")
	return nil
}

// renderTrajectory draws the watermark after each message. Only public
// statement fields are plotted.
func renderTrajectory(w io.Writer, report *batch.Report) error {
	xs := make([]string, len(report.Statements))
	wm := make([]opts.LineData, len(report.Statements))
	for i, s := range report.Statements {
		xs[i] = strconv.Itoa(s.Index)
		wm[i] = opts.LineData{Value: s.Next}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Watermark trajectory",
			Subtitle: fmt.Sprintf("run %s, policy %s, %d → %d", report.RunID, report.Policy, report.Initial, report.Final),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "message"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "watermark"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside"},
			opts.DataZoom{Type: "slider"},
		),
	)
	line.SetXAxis(xs).AddSeries("watermark", wm)

	page := components.NewPage().SetPageTitle("Watermark trajectory")
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
