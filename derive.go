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
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// deriveFunctions are available in Derive expressions.
var deriveFunctions = map[string]govaluate.ExpressionFunction{
	"exp":  unaryFunc("exp", math.Exp),
	"log":  unaryFunc("log", math.Log),
	"sqrt": unaryFunc("sqrt", math.Sqrt),
	"abs":  unaryFunc("abs", math.Abs),
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("climatology: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		x, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("climatology: function '%s' needs a number, got %T", name, arg[0])
		}
		return f(x), nil
	}
}

// Derive returns a copy of d with an additional variable called name,
// calculated by evaluating expression at every element. For example,
//
//	d.Derive("temperature_c", "temperature - 273.15")
//
// All variables referenced in the expression must have the same
// dimensions. The functions exp, log, sqrt, and abs are available.
// d itself is not changed.
func (d *Dataset) Derive(name, expression string) (*Dataset, error) {
	if d.Has(name) {
		return nil, fmt.Errorf("climatology: derived variable %s already exists", name)
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, deriveFunctions)
	if err != nil {
		return nil, fmt.Errorf("climatology: parsing expression for %s: %v", name, err)
	}
	refs := uniqueStrings(expr.Vars())
	if len(refs) == 0 {
		return nil, fmt.Errorf("climatology: expression for %s does not reference any variables", name)
	}

	inputs := make([]*Variable, len(refs))
	for i, ref := range refs {
		if inputs[i], err = d.Variable(ref); err != nil {
			return nil, err
		}
		if !sameDims(inputs[i].Dims, inputs[0].Dims) {
			return nil, fmt.Errorf("climatology: derived variable %s: %s has dimensions %v but %s has %v",
				name, ref, inputs[i].Dims, refs[0], inputs[0].Dims)
		}
	}

	out := sparse.ZerosDense(append([]int{}, inputs[0].Data.Shape...)...)
	params := make(map[string]interface{}, len(refs))
	for j := range out.Elements {
		for i, ref := range refs {
			params[ref] = inputs[i].Data.Elements[j]
		}
		r, err := expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("climatology: evaluating %s: %v", name, err)
		}
		v, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("climatology: expression for %s evaluates to %T, not a number", name, r)
		}
		out.Elements[j] = v
	}

	o := d.clone()
	attrs := map[string]interface{}{"expression": expression}
	if err := o.AddVariable(name, append([]string{}, inputs[0].Dims...), attrs, out); err != nil {
		return nil, err
	}
	return o, nil
}

func sameDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func uniqueStrings(s []string) []string {
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	o := make([]string, 0, len(m))
	for v := range m {
		o = append(o, v)
	}
	sort.Strings(o)
	return o
}
