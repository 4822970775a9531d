package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/trajectory.report/internal/pipeline"
)

func lineData(pts plotter.XYs) []opts.LineData {
	out := make([]opts.LineData, len(pts))
	for i, p := range pts {
		out[i] = opts.LineData{Value: []interface{}{p.X, p.Y}}
	}
	return out
}

func newLineChart(title, subtitle, xName, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xName, NameLocation: "middle", NameGap: 25, Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName, NameLocation: "middle", NameGap: 40, Scale: opts.Bool(true)}),
	)
	return line
}

// WriteHTML renders r as a single HTML page of interactive charts.
func WriteHTML(w io.Writer, r *Report) error {
	table := r.Result.Table
	page := components.NewPage()
	page.SetPageTitle("Trajectory report " + r.RunID)

	for i, run := range r.Result.AutoRuns {
		sum := r.Summaries[i]
		chart := newLineChart(
			fmt.Sprintf("Auto run %d", run.GroupID),
			fmt.Sprintf("rows=%d waypoints=%d mean error=%.2f m", sum.Rows, sum.Waypoints, sum.MeanError),
			"East (m)", "North (m)")
		est, err := xySeries(table, pipeline.Position.RelativeEasting(), pipeline.Position.RelativeNorthing(), run.Start, run.End)
		if err != nil {
			return err
		}
		wps := make(plotter.XYs, len(r.Waypoints[i]))
		for j, wp := range r.Waypoints[i] {
			wps[j] = plotter.XY{X: wp.East, Y: wp.North}
		}
		chart.AddSeries("estimate", lineData(est),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
			AddSeries("waypoints", lineData(wps),
				charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
		page.AddCharts(chart)
	}

	t0 := origin(table)
	rel := newLineChart("Position relative to reference", "", "Time (s)", "Distance (m)")
	for _, s := range []struct{ name, column string }{
		{"east", pipeline.Position.RelativeEasting()},
		{"north", pipeline.Position.RelativeNorthing()},
		{"setpoint east", pipeline.Setpoint.RelativeEasting()},
		{"setpoint north", pipeline.Setpoint.RelativeNorthing()},
	} {
		pts, err := timeSeries(table, s.column, t0)
		if err != nil {
			return err
		}
		rel.AddSeries(s.name, lineData(pts), charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	nav := newLineChart("Navigation state", "", "Time (s)", "State")
	pts, err := timeSeries(table, pipeline.NavState, t0)
	if err != nil {
		return err
	}
	nav.AddSeries("nav_state", lineData(pts),
		charts.WithLineChartOpts(opts.LineChart{Step: "end", ShowSymbol: opts.Bool(false)}))

	page.AddCharts(rel, nav)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	return nil
}
