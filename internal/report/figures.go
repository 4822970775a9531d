package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/trajectory.report/internal/pipeline"
	"github.com/banshee-data/trajectory.report/internal/segment"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

var (
	setpointColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	estimateColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	northColor    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// startLabelOffset shifts the "Start" label east of its anchor, in metres.
const startLabelOffset = 0.4

// startPoint anchors the "Start" label on the first waypoint, or on the first
// estimate when the run has no waypoints.
func startPoint(waypoints []pipeline.Waypoint, est plotter.XYs) (plotter.XY, bool) {
	switch {
	case len(waypoints) > 0:
		return plotter.XY{X: waypoints[0].East + startLabelOffset, Y: waypoints[0].North}, true
	case len(est) > 0:
		return plotter.XY{X: est[0].X + startLabelOffset, Y: est[0].Y}, true
	}
	return plotter.XY{}, false
}

func legendTopRight(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// Trajectory plots the estimated position of one run in reference-relative
// coordinates, with its waypoints joined by a dashed line and a "Start"
// label beside the first waypoint.
func Trajectory(table *telemetry.Table, run segment.Run, waypoints []pipeline.Waypoint) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Auto run %d (%.1f s)", run.GroupID, float64(run.Duration())*secondsPerTick)
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"
	p.Add(plotter.NewGrid())

	if len(waypoints) > 0 {
		pts := make(plotter.XYs, len(waypoints))
		for i, w := range waypoints {
			pts[i] = plotter.XY{X: w.East, Y: w.North}
		}
		line, scatter, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("waypoints: %w", err)
		}
		line.Color = setpointColor
		line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		scatter.Color = setpointColor
		scatter.Shape = draw.CircleGlyph{}
		p.Add(line, scatter)
		p.Legend.Add("waypoints", line, scatter)
	}

	est, err := xySeries(table, pipeline.Position.RelativeEasting(), pipeline.Position.RelativeNorthing(), run.Start, run.End)
	if err != nil {
		return nil, err
	}
	if len(est) > 0 {
		line, err := plotter.NewLine(est)
		if err != nil {
			return nil, fmt.Errorf("estimate: %w", err)
		}
		line.Color = estimateColor
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("estimate", line)
	}
	if at, ok := startPoint(waypoints, est); ok {
		start, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{at},
			Labels: []string{"Start"},
		})
		if err != nil {
			return nil, fmt.Errorf("start label: %w", err)
		}
		p.Add(start)
	}
	legendTopRight(p)
	return p, nil
}

// RelativePosition plots east and north of the estimate against time.
func RelativePosition(table *telemetry.Table) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Position relative to reference"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Distance (m)"
	p.Add(plotter.NewGrid())

	t0 := origin(table)
	series := []struct {
		name   string
		column string
		color  color.Color
		dashed bool
	}{
		{"east", pipeline.Position.RelativeEasting(), estimateColor, false},
		{"north", pipeline.Position.RelativeNorthing(), northColor, false},
		{"setpoint east", pipeline.Setpoint.RelativeEasting(), estimateColor, true},
		{"setpoint north", pipeline.Setpoint.RelativeNorthing(), northColor, true},
	}
	for _, s := range series {
		pts, err := timeSeries(table, s.column, t0)
		if err != nil {
			return nil, err
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		line.Color = s.color
		if s.dashed {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	legendTopRight(p)
	return p, nil
}

// NavState plots the navigation state and its run group id against time as
// step lines.
func NavState(table *telemetry.Table) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Navigation state"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "State"
	p.Add(plotter.NewGrid())

	t0 := origin(table)
	for _, s := range []struct {
		name, column string
		color        color.Color
	}{
		{"nav_state", pipeline.NavState, estimateColor},
		{"group", pipeline.NavGroup, setpointColor},
	} {
		pts, err := timeSeries(table, s.column, t0)
		if err != nil {
			return nil, err
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		line.StepStyle = plotter.PostStep
		line.Color = s.color
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	legendTopRight(p)
	return p, nil
}
