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
	"math"

	"github.com/ctessum/sparse"
)

// Mean returns the arithmetic mean of v over the given dimensions.
// NaN values are skipped; a group containing only NaN values (or no values
// at all) has a NaN mean. The remaining dimensions keep their order.
// Requesting a dimension that v does not have returns a *NotFoundError.
func (v *Variable) Mean(dims ...string) (*Variable, error) {
	reduce := make([]bool, len(v.Dims))
	for _, dim := range dims {
		i := v.Axis(dim)
		if i < 0 {
			return nil, &NotFoundError{Kind: KindDimension, Name: dim, In: v.Name}
		}
		reduce[i] = true
	}
	var outDims []string
	var outShape []int
	for i, dim := range v.Dims {
		if !reduce[i] {
			outDims = append(outDims, dim)
			outShape = append(outShape, v.Data.Shape[i])
		}
	}
	return &Variable{
		Name:       v.Name,
		Dims:       outDims,
		Attributes: copyAttributes(v.Attributes),
		Data:       meanAxes(v.Data, reduce, outShape),
	}, nil
}

// meanAxes averages the elements of a over the axes flagged in reduce.
func meanAxes(a *sparse.DenseArray, reduce []bool, outShape []int) *sparse.DenseArray {
	out := sparse.ZerosDense(outShape...)
	count := make([]int, len(out.Elements))

	// outStride[i] is the step in the output for a unit step along input
	// axis i, or zero for reduced axes.
	outStride := make([]int, len(a.Shape))
	stride := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		if !reduce[i] {
			outStride[i] = stride
			stride *= a.Shape[i]
		}
	}

	index := make([]int, len(a.Shape))
	o := 0
	for _, val := range a.Elements {
		if !math.IsNaN(val) {
			out.Elements[o] += val
			count[o]++
		}
		// Advance the row-major index counter.
		for i := len(index) - 1; i >= 0; i-- {
			index[i]++
			o += outStride[i]
			if index[i] < a.Shape[i] {
				break
			}
			o -= outStride[i] * index[i]
			index[i] = 0
		}
	}
	for i, n := range count {
		if n == 0 {
			out.Elements[i] = math.NaN()
		} else {
			out.Elements[i] /= float64(n)
		}
	}
	return out
}

// Anomalies returns the deviation of v from its mean over dim.
// The result has the same dimensions and shape as v.
func (v *Variable) Anomalies(dim string) (*Variable, error) {
	mean, err := v.Mean(dim)
	if err != nil {
		return nil, err
	}
	axis := v.Axis(dim)
	outer, n, inner := splitShape(v.Data.Shape, axis)

	o := copyVariable(v, v.Name)
	for i := 0; i < outer; i++ {
		for k := 0; k < n; k++ {
			for j := 0; j < inner; j++ {
				o.Data.Elements[(i*n+k)*inner+j] -= mean.Data.Elements[i*inner+j]
			}
		}
	}
	return o, nil
}

// splitShape returns the number of elements before, along, and after
// the given axis of a row-major array with the given shape.
func splitShape(shape []int, axis int) (outer, n, inner int) {
	outer, inner = 1, 1
	for i, s := range shape {
		switch {
		case i < axis:
			outer *= s
		case i > axis:
			inner *= s
		}
	}
	return outer, shape[axis], inner
}

// Mean returns a new dataset where each data variable is averaged over
// whichever of dims it has. Variables with none of dims are copied as-is.
// Coordinates along any of dims are dropped, and so are the dimensions.
// All of dims must be dimensions of d.
func (d *Dataset) Mean(dims ...string) (*Dataset, error) {
	drop := make(map[string]bool, len(dims))
	for _, dim := range dims {
		if !d.HasDim(dim) {
			return nil, dimensionNotFound(dim)
		}
		drop[dim] = true
	}
	o := d.clone()
	for _, name := range d.varOrder {
		v := d.vars[name]
		var these []string
		for _, dim := range v.Dims {
			if drop[dim] {
				these = append(these, dim)
			}
		}
		if len(these) == 0 {
			continue
		}
		m, err := v.Mean(these...)
		if err != nil {
			return nil, err
		}
		o.vars[name] = m
	}
	for _, name := range d.coordOrder {
		if drop[d.coords[name].Dim] {
			o.removeCoord(name)
		}
	}
	for dim := range drop {
		o.removeDim(dim)
	}
	return o, nil
}
