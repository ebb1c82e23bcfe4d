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
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
)

// Plotter computes summaries and figures from a climatology dataset.
// The dataset is loaded when the Plotter is created and is never
// changed afterwards; every operation works on a filtered view of it.
type Plotter struct {
	ds *Dataset

	// Display receives every figure. The default is a FileDisplay
	// that saves figures to the temporary directory and opens them.
	Display Displayer

	Log logrus.FieldLogger
}

// New loads the NetCDF file at path and returns a Plotter for it.
// If the file cannot be read, the error is a *LoadError.
func New(path string) (*Plotter, error) {
	ds, err := Open(path)
	if err != nil {
		return nil, err
	}
	p := NewFromDataset(ds)
	p.Log.WithFields(logrus.Fields{
		"path":    path,
		"dataset": ds.String(),
	}).Debug("loaded dataset")
	return p, nil
}

// NewFromDataset returns a Plotter for a dataset that is already in memory.
// ds must not be changed afterwards.
func NewFromDataset(ds *Dataset) *Plotter {
	return &Plotter{
		ds:      ds,
		Display: NewFileDisplay(""),
		Log:     logrus.StandardLogger(),
	}
}

// Dataset returns a copy of the unfiltered dataset.
func (p *Plotter) Dataset() *Dataset { return p.ds.clone() }

// filter applies f to the dataset.
func (p *Plotter) filter(f Filter) (*Dataset, error) {
	ds, err := f.apply(p.ds)
	if err != nil {
		return nil, err
	}
	if s := f.String(); s != "" {
		p.Log.WithFields(logrus.Fields{
			"filter":  s,
			"dataset": ds.String(),
		}).Debug("filtered dataset")
	}
	return ds, nil
}

// Select returns the subset of the dataset picked by f. A scalar selector
// removes its dimension and keeps the selected label as a scalar
// coordinate; a range keeps the dimension.
func (p *Plotter) Select(f Filter) (*Dataset, error) {
	return p.filter(f)
}

// Mean returns the mean of the filtered dataset over dimension, which may
// be nil, a string, or a list of strings ([]string or []interface{}).
// If dimension is nil the filtered dataset is returned unchanged.
// Any other type returns a *TypeError, and a dimension not present in the
// filtered dataset returns a *NotFoundError.
func (p *Plotter) Mean(dimension interface{}, f Filter) (*Dataset, error) {
	ds, err := p.filter(f)
	if err != nil {
		return nil, err
	}
	dims, err := dimensionList(dimension)
	if err != nil {
		return nil, err
	}
	if dims == nil {
		return ds, nil
	}
	for _, dim := range dims {
		if !ds.HasDim(dim) {
			return nil, dimensionNotFound(dim)
		}
	}
	p.Log.WithFields(logrus.Fields{
		"dims": dims,
	}).Debug("averaging dataset")
	return ds.Mean(dims...)
}

// dimensionList normalizes the dimension argument of Mean.
func dimensionList(dimension interface{}) ([]string, error) {
	switch d := dimension.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{d}, nil
	case []string:
		return append([]string{}, d...), nil
	case []interface{}:
		dims := make([]string, len(d))
		for i, v := range d {
			s, ok := v.(string)
			if !ok {
				return nil, &TypeError{Arg: "dimension", Value: v, Element: true}
			}
			dims[i] = s
		}
		return dims, nil
	default:
		return nil, &TypeError{Arg: "dimension", Value: dimension}
	}
}

// Anomalies returns the deviation of variable from its mean over dim,
// after filtering. An empty dim means "time". The result has the same
// dimensions as the filtered variable.
func (p *Plotter) Anomalies(variable, dim string, f Filter) (*Variable, error) {
	if dim == "" {
		dim = DimTime
	}
	ds, err := p.filter(f)
	if err != nil {
		return nil, err
	}
	v, err := ds.Variable(variable)
	if err != nil {
		return nil, err
	}
	p.Log.WithFields(logrus.Fields{
		"variable": variable,
		"dim":      dim,
	}).Debug("calculating anomalies")
	return v.Anomalies(dim)
}

// PlotTrend draws variable along dim, averaged over its other dimensions,
// and passes the figure to p.Display. The default title is
// "Trend of <variable> over <dim>".
func (p *Plotter) PlotTrend(variable, dim string, f Filter, s Style) error {
	ds, err := p.filter(f)
	if err != nil {
		return err
	}
	v, err := ds.Variable(variable)
	if err != nil {
		return err
	}
	if !ds.HasDim(dim) {
		return dimensionNotFound(dim)
	}
	if v.Axis(dim) < 0 {
		return &NotFoundError{Kind: KindDimension, Name: dim, In: variable}
	}
	var others []string
	for _, d := range v.Dims {
		if d != dim {
			others = append(others, d)
		}
	}
	if len(others) > 0 {
		if v, err = v.Mean(others...); err != nil {
			return err
		}
	}

	if s.Title == "" {
		s.Title = fmt.Sprintf("Trend of %s over %s", variable, dim)
	}
	fig, err := lineFigure(variable, ds.axis(dim), v.Data.Elements, s)
	if err != nil {
		return err
	}
	return p.show(fmt.Sprintf("trend of %s over %s %s", variable, dim, f), fig)
}

// Plot draws variable after filtering and passes the figure to p.Display.
// One-dimensional variables are drawn as a line against their coordinate,
// two-dimensional variables as a heat map, and any others as a histogram of
// their values. The default title is the variable name.
func (p *Plotter) Plot(variable string, f Filter, s Style) error {
	ds, err := p.filter(f)
	if err != nil {
		return err
	}
	v, err := ds.Variable(variable)
	if err != nil {
		return err
	}
	if s.Title == "" {
		s.Title = variable
	}

	var fig *plot.Plot
	switch plotKind(v) {
	case lineKind:
		fig, err = lineFigure(variable, ds.axis(v.Dims[0]), v.Data.Elements, s)
	case heatMapKind:
		fig, err = heatMapFigure(v, ds.axis(v.Dims[0]), ds.axis(v.Dims[1]), s)
	default:
		fig, err = histogramFigure(variable, v, s)
	}
	if err != nil {
		return err
	}
	return p.show(fmt.Sprintf("%s %s", variable, f), fig)
}

type figureKind int

const (
	histogramKind figureKind = iota
	lineKind
	heatMapKind
)

// plotKind returns how v is drawn by Plot.
func plotKind(v *Variable) figureKind {
	switch {
	case len(v.Dims) == 1:
		return lineKind
	case len(v.Dims) == 2 && v.Data.Shape[0] > 1 && v.Data.Shape[1] > 1:
		return heatMapKind
	}
	return histogramKind
}

// show passes fig to the Displayer.
func (p *Plotter) show(name string, fig *plot.Plot) error {
	name = strings.TrimSpace(name)
	p.Log.WithFields(logrus.Fields{
		"figure": name,
	}).Debug("displaying figure")
	if p.Display == nil {
		return fmt.Errorf("climatology: no Displayer for figure %s", name)
	}
	return p.Display.Display(name, fig)
}
