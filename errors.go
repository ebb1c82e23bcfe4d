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
	"strconv"
)

// Kinds of items that a NotFoundError can refer to.
const (
	KindVariable  = "Variable"
	KindDimension = "Dimension"
)

// LoadError is returned when a dataset file is missing, unreadable,
// or not a valid NetCDF file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("climatology: loading %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Err }

// TypeError is returned when an argument does not have one of the
// accepted dynamic types.
type TypeError struct {
	// Arg is the name of the offending argument.
	Arg string
	// Value is the offending value.
	Value interface{}
	// Element is true if Value is an element of a list
	// rather than the argument itself.
	Element bool
}

func (e *TypeError) Error() string {
	if e.Element {
		return fmt.Sprintf("climatology: all %ss must be strings, got %T", e.Arg, e.Value)
	}
	return fmt.Sprintf("climatology: '%s' must be a string, a list of strings, or nil; got %T", e.Arg, e.Value)
}

// NotFoundError is returned when a requested variable or dimension
// does not exist in a (possibly filtered) dataset.
type NotFoundError struct {
	Kind string // KindVariable or KindDimension
	Name string
	// In optionally names the variable that was searched instead of
	// the whole dataset.
	In string
}

func (e *NotFoundError) Error() string {
	if e.In != "" {
		return fmt.Sprintf("climatology: %s '%s' not found in variable '%s'", e.Kind, e.Name, e.In)
	}
	return fmt.Sprintf("climatology: %s '%s' not found in the dataset", e.Kind, e.Name)
}

// LabelError is returned when a scalar selector matches no
// coordinate label.
type LabelError struct {
	Dim   string
	Label float64
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("climatology: label %s not found along dimension %q",
		strconv.FormatFloat(e.Label, 'g', -1, 64), e.Dim)
}

func variableNotFound(name string) error {
	return &NotFoundError{Kind: KindVariable, Name: name}
}

func dimensionNotFound(name string) error {
	return &NotFoundError{Kind: KindDimension, Name: name}
}
