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
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/sparse"
)

type selectorKind int

const (
	selectNone selectorKind = iota
	selectScalar
	selectRange
)

// Selector picks labels along one dimension. The zero value selects
// everything.
type Selector struct {
	kind   selectorKind
	lo, hi float64

	isTime bool
	tlo    time.Time
	thi    time.Time
}

// At selects the single label v. The dimension is dropped from the result.
func At(v float64) Selector { return Selector{kind: selectScalar, lo: v, hi: v} }

// Between selects all labels from lo to hi, inclusive.
func Between(lo, hi float64) Selector { return Selector{kind: selectRange, lo: lo, hi: hi} }

// AtTime selects the single time t along a CF time coordinate.
func AtTime(t time.Time) Selector {
	return Selector{kind: selectScalar, isTime: true, tlo: t, thi: t}
}

// BetweenTimes selects all times from start to end, inclusive,
// along a CF time coordinate.
func BetweenTimes(start, end time.Time) Selector {
	return Selector{kind: selectRange, isTime: true, tlo: start, thi: end}
}

// IsZero returns whether s selects everything.
func (s Selector) IsZero() bool { return s.kind == selectNone }

func (s Selector) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	tf := func(t time.Time) string { return t.Format(time.RFC3339) }
	switch {
	case s.kind == selectScalar && s.isTime:
		return tf(s.tlo)
	case s.kind == selectScalar:
		return f(s.lo)
	case s.kind == selectRange && s.isTime:
		return tf(s.tlo) + ":" + tf(s.thi)
	case s.kind == selectRange:
		return f(s.lo) + ":" + f(s.hi)
	}
	return ""
}

// ParseSelector parses the text form of a selector: "" (everything),
// "850" (a single label), "0:90" (a range), or the same with dates,
// e.g. "2020-01-01" and "2020-01-01:2020-01-05".
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selector{}, nil
	}
	parts := splitRange(s)
	if len(parts) == 1 {
		if v, err := strconv.ParseFloat(parts[0], 64); err == nil {
			return At(v), nil
		}
		t, err := ParseTime(parts[0])
		if err != nil {
			return Selector{}, fmt.Errorf("climatology: invalid selector %q", s)
		}
		return AtTime(t), nil
	}
	lo, errLo := strconv.ParseFloat(parts[0], 64)
	hi, errHi := strconv.ParseFloat(parts[1], 64)
	if errLo == nil && errHi == nil {
		return Between(lo, hi), nil
	}
	tlo, errLo := ParseTime(parts[0])
	thi, errHi := ParseTime(parts[1])
	if errLo != nil || errHi != nil {
		return Selector{}, fmt.Errorf("climatology: invalid range selector %q", s)
	}
	return BetweenTimes(tlo, thi), nil
}

// splitRange splits a range selector on the colon that separates its
// ends, ignoring colons that are part of a time of day.
func splitRange(s string) []string {
	if !strings.Contains(s, ":") {
		return []string{s}
	}
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		lo, hi := s[:i], s[i+1:]
		_, errLo := strconv.ParseFloat(lo, 64)
		_, errHi := strconv.ParseFloat(hi, 64)
		if errLo == nil && errHi == nil {
			return []string{lo, hi}
		}
		if _, err := ParseTime(lo); err == nil {
			if _, err := ParseTime(hi); err == nil {
				return []string{lo, hi}
			}
		}
	}
	return []string{s}
}

// Filter holds optional selectors for the four standard axes.
type Filter struct {
	Lat, Lon, Level, Time Selector
}

// Standard dimension names.
const (
	DimLat   = "lat"
	DimLon   = "lon"
	DimLevel = "level"
	DimTime  = "time"
)

func (f Filter) String() string {
	var parts []string
	for _, s := range f.selectors() {
		if !s.sel.IsZero() {
			parts = append(parts, s.dim+"="+s.sel.String())
		}
	}
	return strings.Join(parts, " ")
}

type dimSelector struct {
	dim string
	sel Selector
}

func (f Filter) selectors() []dimSelector {
	return []dimSelector{
		{DimLat, f.Lat},
		{DimLon, f.Lon},
		{DimLevel, f.Level},
		{DimTime, f.Time},
	}
}

// apply returns a copy of ds narrowed by the selectors in f, in the order
// lat, lon, level, time. Axes without a selector are passed through
// unchanged.
func (f Filter) apply(ds *Dataset) (*Dataset, error) {
	out := ds.clone()
	for _, s := range f.selectors() {
		if s.sel.IsZero() {
			continue
		}
		var err error
		out, err = out.Sel(s.dim, s.sel)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Sel returns a new dataset containing the labels along dim picked by s.
// A scalar selector must match a label exactly, otherwise a *LabelError is
// returned; the dimension is then dropped and its coordinate kept as a
// scalar coordinate. A range selector keeps every label between its ends,
// inclusive and in either order, and may leave the dimension empty.
// Dimensions without a coordinate are labeled by position.
func (d *Dataset) Sel(dim string, s Selector) (*Dataset, error) {
	if !d.HasDim(dim) {
		return nil, dimensionNotFound(dim)
	}
	if s.IsZero() {
		return d.clone(), nil
	}
	lo, hi := s.lo, s.hi
	if s.isTime {
		u, err := d.TimeUnits(dim)
		if err != nil {
			return nil, fmt.Errorf("climatology: time selector on %s: %v", dim, err)
		}
		lo, hi = u.Value(s.tlo), u.Value(s.thi)
	}
	if lo > hi {
		lo, hi = hi, lo
	}

	labels := d.labels(dim)
	var idx []int
	switch s.kind {
	case selectScalar:
		for i, l := range labels {
			if l == lo || (s.isTime && nearlyEqual(l, lo, 1e-12)) {
				idx = []int{i}
				break
			}
		}
		if idx == nil {
			return nil, &LabelError{Dim: dim, Label: lo}
		}
	case selectRange:
		idx = []int{}
		for i, l := range labels {
			if l >= lo && l <= hi {
				idx = append(idx, i)
			}
		}
	}
	return d.isel(dim, idx, s.kind == selectScalar), nil
}

// isel returns a new dataset holding only the given positions along dim.
// If drop is true, idx must have one entry and dim is removed.
func (d *Dataset) isel(dim string, idx []int, drop bool) *Dataset {
	o := d.clone()
	if drop {
		o.removeDim(dim)
	} else {
		o.lengths[dim] = len(idx)
	}

	for _, name := range d.coordOrder {
		c := d.coords[name]
		if c.Dim != dim {
			continue
		}
		values := make([]float64, len(idx))
		for i, j := range idx {
			values[i] = c.Values[j]
		}
		nc := &Coordinate{Name: c.Name, Dim: dim, Values: values, Attributes: copyAttributes(c.Attributes)}
		if drop {
			nc.Dim = ""
		}
		o.coords[name] = nc
	}

	for _, name := range d.varOrder {
		v := d.vars[name]
		axis := v.Axis(dim)
		if axis < 0 {
			continue
		}
		o.vars[name] = take(v, axis, idx, drop)
	}
	return o
}

// take returns the positions idx along axis of v. If drop is true
// the axis is removed from the result.
func take(v *Variable, axis int, idx []int, drop bool) *Variable {
	outer, n, inner := splitShape(v.Data.Shape, axis)

	var dims []string
	var shape []int
	for i, dim := range v.Dims {
		switch {
		case i != axis:
			dims = append(dims, dim)
			shape = append(shape, v.Data.Shape[i])
		case !drop:
			dims = append(dims, dim)
			shape = append(shape, len(idx))
		}
	}
	out := sparse.ZerosDense(shape...)
	for i := 0; i < outer; i++ {
		for k, src := range idx {
			copy(out.Elements[(i*len(idx)+k)*inner:(i*len(idx)+k+1)*inner],
				v.Data.Elements[(i*n+src)*inner:(i*n+src+1)*inner])
		}
	}
	return &Variable{Name: v.Name, Dims: dims, Attributes: copyAttributes(v.Attributes), Data: out}
}

// nearlyEqual reports whether a and b are equal within a relative
// tolerance, treating two NaNs as equal.
func nearlyEqual(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tolerance*math.Max(math.Abs(a), math.Abs(b))
}
