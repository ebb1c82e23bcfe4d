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
	"sort"

	"github.com/ctessum/sparse"
)

// Variable is a named n-dimensional array. Data.Shape has one entry
// for each entry in Dims.
type Variable struct {
	Name       string
	Dims       []string
	Attributes map[string]interface{}
	Data       *sparse.DenseArray
}

// Units returns the value of the "units" attribute, or "" if there isn't one.
func (v *Variable) Units() string {
	if s, ok := v.Attributes["units"].(string); ok {
		return s
	}
	return ""
}

// Axis returns the position of dimension dim in v.Dims, or -1.
func (v *Variable) Axis(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Len returns the number of elements in v.
func (v *Variable) Len() int { return len(v.Data.Elements) }

// copyVariable returns a deep copy of v with the given name.
func copyVariable(v *Variable, name string) *Variable {
	o := &Variable{
		Name:       name,
		Dims:       append([]string{}, v.Dims...),
		Attributes: copyAttributes(v.Attributes),
		Data:       sparse.ZerosDense(append([]int{}, v.Data.Shape...)...),
	}
	copy(o.Data.Elements, v.Data.Elements)
	return o
}

func copyAttributes(a map[string]interface{}) map[string]interface{} {
	o := make(map[string]interface{}, len(a))
	for k, v := range a {
		o[k] = v
	}
	return o
}

// Coordinate holds the labels along a dimension. An index coordinate has
// Dim == Name. An auxiliary coordinate lies along another dimension. A
// scalar coordinate, which is what remains after selecting a single label,
// has Dim == "" and exactly one value.
type Coordinate struct {
	Name       string
	Dim        string
	Values     []float64
	Attributes map[string]interface{}
}

// Scalar returns whether c is a scalar coordinate.
func (c *Coordinate) Scalar() bool { return c.Dim == "" }

// Units returns the value of the "units" attribute, or "" if there isn't one.
func (c *Coordinate) Units() string {
	if s, ok := c.Attributes["units"].(string); ok {
		return s
	}
	return ""
}

// variable represents c as a Variable.
func (c *Coordinate) variable() *Variable {
	var v *Variable
	if c.Scalar() {
		v = &Variable{Name: c.Name, Data: sparse.ZerosDense()}
	} else {
		v = &Variable{Name: c.Name, Dims: []string{c.Dim}, Data: sparse.ZerosDense(len(c.Values))}
	}
	v.Attributes = copyAttributes(c.Attributes)
	copy(v.Data.Elements, c.Values)
	return v
}

// Dataset is an in-memory collection of named variables over named,
// labeled dimensions.
type Dataset struct {
	dims    []string
	lengths map[string]int

	coords     map[string]*Coordinate
	coordOrder []string

	vars     map[string]*Variable
	varOrder []string

	// Attributes holds global attributes.
	Attributes map[string]interface{}
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		lengths:    make(map[string]int),
		coords:     make(map[string]*Coordinate),
		vars:       make(map[string]*Variable),
		Attributes: make(map[string]interface{}),
	}
}

// AddDim adds a dimension of the given length to d.
func (d *Dataset) AddDim(name string, length int) error {
	if _, ok := d.lengths[name]; ok {
		return fmt.Errorf("climatology: repeated dimension %s", name)
	}
	if length < 0 {
		return fmt.Errorf("climatology: dimension %s has negative length %d", name, length)
	}
	d.dims = append(d.dims, name)
	d.lengths[name] = length
	return nil
}

// AddCoord adds coordinate labels to d. dim is the dimension the labels lie
// along, or "" for a scalar coordinate.
func (d *Dataset) AddCoord(name, dim string, values []float64, attributes map[string]interface{}) error {
	if d.Has(name) {
		return fmt.Errorf("climatology: repeated coordinate %s", name)
	}
	if dim == "" {
		if len(values) != 1 {
			return fmt.Errorf("climatology: scalar coordinate %s has %d values", name, len(values))
		}
	} else {
		n, ok := d.lengths[dim]
		if !ok {
			return fmt.Errorf("climatology: coordinate %s: %v", name, dimensionNotFound(dim))
		}
		if n != len(values) {
			return fmt.Errorf("climatology: coordinate %s has %d values but dimension %s has length %d",
				name, len(values), dim, n)
		}
	}
	if attributes == nil {
		attributes = make(map[string]interface{})
	}
	d.coords[name] = &Coordinate{Name: name, Dim: dim, Values: values, Attributes: attributes}
	d.coordOrder = append(d.coordOrder, name)
	return nil
}

// AddVariable adds a data variable to d. The shape of data must match
// the lengths of dims.
func (d *Dataset) AddVariable(name string, dims []string, attributes map[string]interface{}, data *sparse.DenseArray) error {
	if d.Has(name) {
		return fmt.Errorf("climatology: repeated variable %s", name)
	}
	if len(dims) != len(data.Shape) {
		return fmt.Errorf("climatology: variable %s has %d dimensions but data has %d",
			name, len(dims), len(data.Shape))
	}
	for i, dim := range dims {
		n, ok := d.lengths[dim]
		if !ok {
			return fmt.Errorf("climatology: variable %s: %v", name, dimensionNotFound(dim))
		}
		if n != data.Shape[i] {
			return fmt.Errorf("climatology: variable %s: dimension %s has length %d but data has %d",
				name, dim, n, data.Shape[i])
		}
	}
	if attributes == nil {
		attributes = make(map[string]interface{})
	}
	d.vars[name] = &Variable{Name: name, Dims: dims, Attributes: attributes, Data: data}
	d.varOrder = append(d.varOrder, name)
	return nil
}

// Dims returns the dimension names of d in order.
func (d *Dataset) Dims() []string { return append([]string{}, d.dims...) }

// Len returns the length of dimension dim and whether it exists.
func (d *Dataset) Len(dim string) (int, bool) {
	n, ok := d.lengths[dim]
	return n, ok
}

// HasDim returns whether d has dimension dim.
func (d *Dataset) HasDim(dim string) bool {
	_, ok := d.lengths[dim]
	return ok
}

// Variables returns the names of the data variables in d, in the order
// they were added.
func (d *Dataset) Variables() []string { return append([]string{}, d.varOrder...) }

// Coords returns the names of the coordinates in d, in the order
// they were added.
func (d *Dataset) Coords() []string { return append([]string{}, d.coordOrder...) }

// Coord returns a copy of the named coordinate, or nil if it does not exist.
func (d *Dataset) Coord(name string) *Coordinate {
	c, ok := d.coords[name]
	if !ok {
		return nil
	}
	return copyCoordinate(c)
}

func copyCoordinate(c *Coordinate) *Coordinate {
	return &Coordinate{
		Name:       c.Name,
		Dim:        c.Dim,
		Values:     append([]float64{}, c.Values...),
		Attributes: copyAttributes(c.Attributes),
	}
}

// Attribute returns the global attribute with the given name, or nil.
func (d *Dataset) Attribute(name string) interface{} { return d.Attributes[name] }

// Has returns whether d contains a data variable or coordinate
// with the given name.
func (d *Dataset) Has(name string) bool {
	if _, ok := d.vars[name]; ok {
		return true
	}
	_, ok := d.coords[name]
	return ok
}

// Variable returns the named data variable, or the named coordinate
// represented as a variable. The returned variable is a copy, so changing it
// does not change d.
func (d *Dataset) Variable(name string) (*Variable, error) {
	if v, ok := d.vars[name]; ok {
		return copyVariable(v, name), nil
	}
	if c, ok := d.coords[name]; ok {
		return c.variable(), nil
	}
	return nil, variableNotFound(name)
}

// labels returns the labels along dim: the index coordinate if there is
// one, otherwise the positions 0..n-1.
func (d *Dataset) labels(dim string) []float64 {
	if c, ok := d.coords[dim]; ok && c.Dim == dim {
		return c.Values
	}
	o := make([]float64, d.lengths[dim])
	for i := range o {
		o[i] = float64(i)
	}
	return o
}

// String returns a short summary of d.
func (d *Dataset) String() string {
	s := "Dataset dimensions:"
	for _, dim := range d.dims {
		s += fmt.Sprintf(" %s=%d", dim, d.lengths[dim])
	}
	s += "; variables:"
	names := d.Variables()
	sort.Strings(names)
	for _, n := range names {
		s += fmt.Sprintf(" %s%v", n, d.vars[n].Dims)
	}
	return s
}

// clone returns a deep copy of d.
func (d *Dataset) clone() *Dataset {
	o := NewDataset()
	o.dims = append(o.dims, d.dims...)
	for k, v := range d.lengths {
		o.lengths[k] = v
	}
	for _, name := range d.coordOrder {
		o.coords[name] = copyCoordinate(d.coords[name])
	}
	o.coordOrder = append(o.coordOrder, d.coordOrder...)
	for _, name := range d.varOrder {
		o.vars[name] = copyVariable(d.vars[name], name)
	}
	o.varOrder = append(o.varOrder, d.varOrder...)
	o.Attributes = copyAttributes(d.Attributes)
	return o
}

// removeDim removes dim from the dimension list of d.
func (d *Dataset) removeDim(dim string) {
	for i, name := range d.dims {
		if name == dim {
			d.dims = append(d.dims[:i:i], d.dims[i+1:]...)
			break
		}
	}
	delete(d.lengths, dim)
}

// removeCoord removes the named coordinate from d.
func (d *Dataset) removeCoord(name string) {
	for i, n := range d.coordOrder {
		if n == name {
			d.coordOrder = append(d.coordOrder[:i:i], d.coordOrder[i+1:]...)
			break
		}
	}
	delete(d.coords, name)
}

// ForVariable returns a new dataset holding v together with the
// coordinates of d that lie along the dimensions of v, and the scalar
// coordinates of d. v is typically the result of a calculation on
// a variable of d.
func (d *Dataset) ForVariable(v *Variable) (*Dataset, error) {
	o := NewDataset()
	o.Attributes = copyAttributes(d.Attributes)
	keep := make(map[string]bool)
	for i, dim := range v.Dims {
		if n, ok := d.lengths[dim]; ok && n != v.Data.Shape[i] {
			return nil, fmt.Errorf("climatology: variable %s: dimension %s has length %d but data has %d",
				v.Name, dim, n, v.Data.Shape[i])
		}
		if err := o.AddDim(dim, v.Data.Shape[i]); err != nil {
			return nil, err
		}
		keep[dim] = true
	}
	for _, name := range d.coordOrder {
		c := d.coords[name]
		if c.Name == v.Name || !(c.Scalar() || keep[c.Dim]) {
			continue
		}
		if err := o.AddCoord(name, c.Dim, append([]float64{}, c.Values...), copyAttributes(c.Attributes)); err != nil {
			return nil, err
		}
	}
	nv := copyVariable(v, v.Name)
	if err := o.AddVariable(nv.Name, nv.Dims, nv.Attributes, nv.Data); err != nil {
		return nil, err
	}
	return o, nil
}
