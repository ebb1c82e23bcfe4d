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
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Open loads the NetCDF file at path into memory. The file is closed
// before Open returns. Any failure is returned as a *LoadError.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	d, err := ReadCDF(f, fi.Size())
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return d, nil
}

// ReadCDF decodes a NetCDF classic dataset from rw. size is the total size
// of the data in bytes, which determines the length of the record
// dimension, if any.
//
// Variables named after a one-dimensional dimension become index
// coordinates, and variables listed in a "coordinates" attribute become
// auxiliary or scalar coordinates. Values equal to _FillValue or
// missing_value are replaced by NaN and scale_factor and add_offset are
// applied.
func ReadCDF(rw cdf.ReaderWriterAt, size int64) (d *Dataset, err error) {
	// The cdf package panics on some malformed headers.
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("malformed netcdf file: %v", r)
		}
	}()
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, err
	}
	h := f.Header
	if errs := h.Check(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid netcdf header: %v", errs[0])
	}
	numRecs := int(h.NumRecs(size))

	d = NewDataset()
	dims, lengths := h.Dimensions(""), h.Lengths("")
	for i, dim := range dims {
		n := lengths[i]
		if n == 0 { // record dimension
			n = numRecs
		}
		if err := d.AddDim(dim, n); err != nil {
			return nil, err
		}
	}
	for _, a := range h.Attributes("") {
		d.Attributes[a] = h.GetAttribute("", a)
	}

	// Find the auxiliary and scalar coordinates.
	auxCoords := make(map[string]bool)
	for _, v := range h.Variables() {
		if s, ok := h.GetAttribute(v, "coordinates").(string); ok {
			for _, c := range strings.Fields(s) {
				auxCoords[c] = true
			}
		}
	}

	for _, name := range h.Variables() {
		if _, ok := h.ZeroValue(name, 0).(string); ok {
			continue // CHAR variables hold text, not data.
		}
		vdims := h.Dimensions(name)
		attrs := make(map[string]interface{})
		for _, a := range h.Attributes(name) {
			attrs[a] = h.GetAttribute(name, a)
		}
		data, err := readVariable(f, name, vdims, d)
		if err != nil {
			return nil, fmt.Errorf("reading variable %s: %v", name, err)
		}
		decode(data.Elements, attrs)
		for a := range encodingAttributes {
			delete(attrs, a)
		}

		switch {
		case len(vdims) == 1 && vdims[0] == name:
			err = d.AddCoord(name, name, data.Elements, attrs)
		case auxCoords[name] && len(vdims) == 0:
			err = d.AddCoord(name, "", data.Elements, attrs)
		case auxCoords[name] && len(vdims) == 1:
			err = d.AddCoord(name, vdims[0], data.Elements, attrs)
		default:
			err = d.AddVariable(name, vdims, attrs, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// readVariable reads all values of the named variable as float64.
func readVariable(f *cdf.File, name string, dims []string, d *Dataset) (*sparse.DenseArray, error) {
	shape := make([]int, len(dims))
	n := 1
	for i, dim := range dims {
		shape[i], _ = d.Len(dim)
		n *= shape[i]
	}
	data := sparse.ZerosDense(shape...)
	if n == 0 {
		return data, nil
	}

	var begin, end []int
	if f.Header.IsRecordVariable(name) {
		begin, end = make([]int, len(shape)), make([]int, len(shape))
		for i, s := range shape {
			end[i] = s - 1
		}
	}
	r := f.Reader(name, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	switch b := buf.(type) {
	case []uint8:
		for i, v := range b {
			data.Elements[i] = float64(int8(v))
		}
	case []int16:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []float32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	case []float64:
		copy(data.Elements, b)
	default:
		return nil, fmt.Errorf("unsupported data type %T", buf)
	}
	return data, nil
}

// decode applies the CF masking and scaling attributes to vals.
func decode(vals []float64, attrs map[string]interface{}) {
	var masks []float64
	for _, a := range []string{"_FillValue", "missing_value"} {
		if v, ok := attrFloat(attrs[a]); ok {
			masks = append(masks, v)
		}
	}
	scale, hasScale := attrFloat(attrs["scale_factor"])
	offset, hasOffset := attrFloat(attrs["add_offset"])
	for i, v := range vals {
		for _, m := range masks {
			if v == m {
				v = math.NaN()
			}
		}
		if hasScale {
			v *= scale
		}
		if hasOffset {
			v += offset
		}
		vals[i] = v
	}
}

// attrFloat returns the first value of a numeric attribute.
func attrFloat(a interface{}) (float64, bool) {
	switch v := a.(type) {
	case []uint8:
		if len(v) > 0 {
			return float64(int8(v[0])), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	}
	return 0, false
}

// encodingAttributes are dropped when writing because the values
// they describe have already been decoded.
var encodingAttributes = map[string]bool{
	"_FillValue":    true,
	"missing_value": true,
	"scale_factor":  true,
	"add_offset":    true,
	"coordinates":   true,
}

// Write writes d to w in NetCDF classic format. All values are written as
// doubles with NaN as the fill value. Scalar and auxiliary coordinates are
// listed in the "coordinates" attribute of each data variable (scalar ones
// as 0-d variables), so reading the file back restores them. Empty
// dimensions cannot be written.
func (d *Dataset) Write(w *os.File) error {
	lengths := make([]int, len(d.dims))
	for i, dim := range d.dims {
		lengths[i] = d.lengths[dim]
		if lengths[i] == 0 {
			return fmt.Errorf("climatology: cannot write empty dimension %s", dim)
		}
	}
	h := cdf.NewHeader(d.dims, lengths)
	addAttributes(h, "", d.Attributes)

	var aux []string
	for _, name := range d.coordOrder {
		c := d.coords[name]
		var dims []string
		if !c.Scalar() {
			dims = []string{c.Dim}
		}
		if c.Dim != name {
			aux = append(aux, name)
		}
		h.AddVariable(name, dims, []float64{0})
		addAttributes(h, name, c.Attributes)
	}
	for _, name := range d.varOrder {
		v := d.vars[name]
		h.AddVariable(name, v.Dims, []float64{0})
		addAttributes(h, name, v.Attributes)
		h.AddAttribute(name, "_FillValue", []float64{math.NaN()})
		if len(aux) > 0 {
			h.AddAttribute(name, "coordinates", strings.Join(aux, " "))
		}
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, name := range d.coordOrder {
		if err = writeNCF(f, name, d.coords[name].Values); err != nil {
			return fmt.Errorf("climatology: writing coordinate %s to netcdf file: %v", name, err)
		}
	}
	for _, name := range d.varOrder {
		if err = writeNCF(f, name, d.vars[name].Data.Elements); err != nil {
			return fmt.Errorf("climatology: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func addAttributes(h *cdf.Header, v string, attrs map[string]interface{}) {
	for _, a := range sortedKeys(attrs) {
		if encodingAttributes[a] {
			continue
		}
		switch attrs[a].(type) {
		case string, []uint8, []int16, []int32, []float32, []float64:
			h.AddAttribute(v, a, attrs[a])
		}
	}
}

// writeNCF writes all values of the named variable. The writer
// reports io.EOF when it reaches the end of the variable, which
// is expected once every value has been written.
func writeNCF(f *cdf.File, name string, data []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	n, err := w.Write(data)
	if err == io.EOF && n == len(data) {
		return nil
	}
	if err == nil && n != len(data) {
		return fmt.Errorf("wrote %d of %d values", n, len(data))
	}
	return err
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
