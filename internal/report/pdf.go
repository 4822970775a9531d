package report

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

// ErrNoFigures is returned when there is nothing to render.
var ErrNoFigures = errors.New("no figures to render")

// WritePDF draws figures one per page of a width x height PDF document.
func WritePDF(w io.Writer, figures []*plot.Plot, width, height vg.Length) error {
	if len(figures) == 0 {
		return ErrNoFigures
	}
	c := vgpdf.New(width, height)
	for i, p := range figures {
		if i > 0 {
			c.NextPage()
		}
		p.Draw(draw.New(c))
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
