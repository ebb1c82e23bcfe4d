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
	"testing"
)

func TestDerive(t *testing.T) {
	ds := sampleDataset(t)
	d, err := ds.Derive("temperature_c", "temperature - 273.15")
	if err != nil {
		t.Fatal(err)
	}
	if ds.Has("temperature_c") {
		t.Error("Derive changed the original dataset")
	}
	c, err := d.Variable("temperature_c")
	if err != nil {
		t.Fatal(err)
	}
	k, _ := d.Variable("temperature")
	for i, v := range c.Data.Elements {
		if math.Abs(v-(k.Data.Elements[i]-273.15)) > testTolerance {
			t.Fatalf("element %d: want %g but have %g", i, k.Data.Elements[i]-273.15, v)
		}
	}
	if c.Attributes["expression"] != "temperature - 273.15" {
		t.Errorf("expression attribute: have %v", c.Attributes["expression"])
	}

	d, err = ds.Derive("root", "sqrt(abs(precipitation)) * 2")
	if err != nil {
		t.Fatal(err)
	}
	r, _ := d.Variable("root")
	p, _ := d.Variable("precipitation")
	if want := math.Sqrt(p.Data.Elements[7]) * 2; math.Abs(r.Data.Elements[7]-want) > testTolerance {
		t.Errorf("want %g but have %g", want, r.Data.Elements[7])
	}
}

func TestDeriveErrors(t *testing.T) {
	ds := sampleDataset(t)
	for name, expr := range map[string]string{
		"mismatched dims": "temperature + precipitation",
		"missing":         "humidity * 2",
		"no variables":    "1 + 2",
		"syntax":          "temperature +* 2",
		"not a number":    "temperature > 280",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ds.Derive("x", expr); err == nil {
				t.Errorf("%q should fail", expr)
			}
		})
	}
	if _, err := ds.Derive("temperature", "precipitation"); err == nil {
		t.Error("existing name should fail")
	}
}
