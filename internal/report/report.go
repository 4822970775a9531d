package report

import (
	"fmt"
	"io"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/pipeline"
	"github.com/banshee-data/trajectory.report/internal/security"
)

// Report holds everything derived from one analysis result. Waypoints and
// Summaries are indexed like Result.AutoRuns.
type Report struct {
	RunID     string
	Result    *pipeline.Result
	Waypoints [][]pipeline.Waypoint
	Summaries []RunSummary
	Figures   []*plot.Plot
}

// Build extracts waypoints and statistics for every auto run and creates the
// figures: one trajectory per auto run followed by the relative position
// and navigation state over the whole log.
func Build(runID string, res *pipeline.Result) (*Report, error) {
	r := &Report{RunID: runID, Result: res}
	for _, run := range res.AutoRuns {
		wps, err := pipeline.Waypoints(res.Table, run)
		if err != nil {
			return nil, fmt.Errorf("run %d waypoints: %w", run.GroupID, err)
		}
		sum, err := Summarize(res.Table, run, wps)
		if err != nil {
			return nil, fmt.Errorf("run %d summary: %w", run.GroupID, err)
		}
		fig, err := Trajectory(res.Table, run, wps)
		if err != nil {
			return nil, fmt.Errorf("run %d trajectory: %w", run.GroupID, err)
		}
		r.Waypoints = append(r.Waypoints, wps)
		r.Summaries = append(r.Summaries, sum)
		r.Figures = append(r.Figures, fig)
	}

	rel, err := RelativePosition(res.Table)
	if err != nil {
		return nil, fmt.Errorf("relative position: %w", err)
	}
	nav, err := NavState(res.Table)
	if err != nil {
		return nil, fmt.Errorf("nav state: %w", err)
	}
	r.Figures = append(r.Figures, rel, nav)
	return r, nil
}

// WriteFiles writes <base>.pdf and <base>.html into dir on fsys and returns
// their paths. base is sanitised first. The page size is given in inches.
func (r *Report) WriteFiles(fsys fsutil.FileSystem, dir, base string, widthIn, heightIn float64) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	base = security.SanitizeFilename(base)
	pdfPath := filepath.Join(dir, base+".pdf")
	htmlPath := filepath.Join(dir, base+".html")

	if err := writeFile(fsys, pdfPath, func(w io.Writer) error {
		return WritePDF(w, r.Figures, vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(fsys, htmlPath, func(w io.Writer) error {
		return WriteHTML(w, r)
	}); err != nil {
		return nil, err
	}
	monitoring.Logf("report: wrote %d figures to %s and %s", len(r.Figures), pdfPath, htmlPath)
	return []string{pdfPath, htmlPath}, nil
}

func writeFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
