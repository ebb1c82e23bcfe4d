/*
Copyright © 2019 the InMAP authors.
This file is part of climatology.

climatology is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

climatology is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with climatology.  If not, see <http://www.gnu.org/licenses/>.
*/

package climatology

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// histogramBins is the number of bins used for variables with more than
// two dimensions.
const histogramBins = 10

// axis holds the labels of one plot axis.
type axis struct {
	name   string
	values []float64
	// time is non-nil if values are CF times.
	time *TimeUnits
}

// axis returns the labels along dim of d.
func (d *Dataset) axis(dim string) axis {
	a := axis{name: dim, values: d.labels(dim)}
	if u, err := d.TimeUnits(dim); err == nil {
		a.time = &u
	}
	return a
}

// setAxis labels the plot axis pa after a.
func (a axis) setAxis(pa *plot.Axis, label string) {
	if label == "" {
		label = a.name
	}
	pa.Label.Text = label
	if a.time != nil {
		pa.Tick.Marker = plot.TimeTicks{
			Format: "2006-01-02",
			Time:   a.time.Time,
		}
	}
}

func newFigure(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	return p
}

// lineFigure draws y against the labels of x. Points where y is NaN
// are left out.
func lineFigure(legend string, x axis, y []float64, s Style) (*plot.Plot, error) {
	if len(x.values) != len(y) {
		return nil, fmt.Errorf("climatology: %d x values but %d y values", len(x.values), len(y))
	}
	ls, err := s.lineStyle()
	if err != nil {
		return nil, err
	}
	xys := make(plotter.XYs, 0, len(y))
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: x.values[i], Y: v})
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("climatology: drawing %s: %v", legend, err)
	}
	l.LineStyle = ls

	p := newFigure(s.Title)
	x.setAxis(&p.X, s.XLabel)
	p.Y.Label.Text = s.YLabel
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = legend
	}
	p.Add(l)
	p.Legend.Add(legend, l)
	return p, nil
}

// heatMapFigure draws a two-dimensional variable with its first dimension
// along the y axis and its second along the x axis.
func heatMapFigure(v *Variable, y, x axis, s Style) (*plot.Plot, error) {
	if _, err := s.lineStyle(); err != nil {
		return nil, err
	}
	g := newGrid(v, x.values, y.values)
	cm := moreland.SmoothBlueRed()
	cm.SetMax(g.Max())
	cm.SetMin(g.Min())
	pal := cm.Palette(255)
	hm := plotter.NewHeatMap(g, pal)

	p := newFigure(s.Title)
	x.setAxis(&p.X, s.XLabel)
	y.setAxis(&p.Y, s.YLabel)
	p.Add(hm)
	p.Legend.Add(v.Name, paletteThumbnail(pal.Colors()))
	return p, nil
}

// paletteThumbnail draws the colors of a heat map palette as vertical
// stripes in a legend entry.
type paletteThumbnail []color.Color

func (t paletteThumbnail) Thumbnail(c *draw.Canvas) {
	if len(t) == 0 {
		return
	}
	w := (c.Max.X - c.Min.X) / vg.Length(len(t))
	for i, col := range t {
		x0 := c.Min.X + vg.Length(i)*w
		c.FillPolygon(col, []vg.Point{
			{X: x0, Y: c.Min.Y},
			{X: x0 + w, Y: c.Min.Y},
			{X: x0 + w, Y: c.Max.Y},
			{X: x0, Y: c.Max.Y},
		})
	}
}

// histogramFigure draws the distribution of the values of v.
func histogramFigure(legend string, v *Variable, s Style) (*plot.Plot, error) {
	ls, err := s.lineStyle()
	if err != nil {
		return nil, err
	}
	vals := make(plotter.Values, 0, v.Len())
	for _, val := range v.Data.Elements {
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			vals = append(vals, val)
		}
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("climatology: variable %s has no finite values to plot", v.Name)
	}
	h, err := plotter.NewHist(vals, histogramBins)
	if err != nil {
		return nil, fmt.Errorf("climatology: drawing %s: %v", legend, err)
	}
	h.FillColor = ls.Color
	h.LineStyle.Width = 0

	p := newFigure(s.Title)
	p.X.Label.Text = s.XLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = legend
	}
	p.Y.Label.Text = s.YLabel
	if p.Y.Label.Text == "" {
		p.Y.Label.Text = "count"
	}
	p.Add(h)
	p.Legend.Add(legend, h)
	return p, nil
}

// grid adapts a two-dimensional variable to plotter.GridXYZ. Axes are
// flipped where needed so that X and Y increase.
type grid struct {
	v      *Variable
	x, y   []float64
	xi, yi []int
	min    float64
	max    float64
}

func newGrid(v *Variable, x, y []float64) *grid {
	g := &grid{v: v, x: x, y: y, xi: ascending(x), yi: ascending(y)}
	finite := make([]float64, 0, v.Len())
	for _, val := range v.Data.Elements {
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			finite = append(finite, val)
		}
	}
	if len(finite) == 0 {
		g.min, g.max = 0, 1
		return g
	}
	g.min, g.max = floats.Min(finite), floats.Max(finite)
	if g.min == g.max {
		g.min--
		g.max++
	}
	return g
}

// ascending returns the order in which to visit v so that it increases,
// assuming v is monotonic.
func ascending(v []float64) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	if len(v) > 1 && v[0] > v[len(v)-1] {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	return idx
}

func (g *grid) Dims() (c, r int) { return len(g.x), len(g.y) }
func (g *grid) X(c int) float64  { return g.x[g.xi[c]] }
func (g *grid) Y(r int) float64  { return g.y[g.yi[r]] }
func (g *grid) Z(c, r int) float64 {
	return g.v.Data.Elements[g.yi[r]*len(g.x)+g.xi[c]]
}
func (g *grid) Min() float64 { return g.min }
func (g *grid) Max() float64 { return g.max }
