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

package hash

import (
	"math"
	"testing"
)

type request struct {
	Name  string
	Value float64
	opts  map[string]int
}

func TestKey(t *testing.T) {
	a := request{Name: "temperature", Value: math.NaN(), opts: map[string]int{"b": 2, "a": 1}}
	b := request{Name: "temperature", Value: math.NaN(), opts: map[string]int{"a": 1, "b": 2}}
	c := request{Name: "pressure", Value: math.NaN()}

	if Key(a) != Key(b) {
		t.Errorf("equal objects give different keys: %s != %s", Key(a), Key(b))
	}
	if Key(a) == Key(c) {
		t.Errorf("different objects give the same key %s", Key(a))
	}
	if Key("x", "y") == Key("xy") {
		t.Error("key should depend on how objects are split")
	}
	if len(Key(a)) != 16 {
		t.Errorf("key %s should have 16 characters", Key(a))
	}
}
