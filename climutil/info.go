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

package climutil

import (
	"fmt"
	"io"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/climatology"
	"gonum.org/v1/gonum/floats"
)

// datasetInfo summarizes a dataset for the info command.
type datasetInfo struct {
	Dimensions  map[string]int
	Attributes  map[string]string       `toml:",omitempty"`
	Coordinates map[string]coordInfo    `toml:",omitempty"`
	Variables   map[string]variableInfo `toml:",omitempty"`
}

type coordInfo struct {
	Dimension string `toml:",omitempty"`
	Units     string `toml:",omitempty"`
	Length    int
	First     string `toml:",omitempty"`
	Last      string `toml:",omitempty"`
}

type variableInfo struct {
	Dimensions []string
	Units      string `toml:",omitempty"`
	Min        string
	Mean       string
	Max        string
}

// summarize returns a summary of ds.
func summarize(ds *climatology.Dataset) (*datasetInfo, error) {
	info := &datasetInfo{
		Dimensions:  make(map[string]int),
		Attributes:  make(map[string]string),
		Coordinates: make(map[string]coordInfo),
		Variables:   make(map[string]variableInfo),
	}
	for _, dim := range ds.Dims() {
		info.Dimensions[dim], _ = ds.Len(dim)
	}
	for k, v := range ds.Attributes {
		if s, ok := v.(string); ok {
			info.Attributes[k] = s
		} else {
			info.Attributes[k] = fmt.Sprint(v)
		}
	}
	for _, name := range ds.Coords() {
		c := ds.Coord(name)
		ci := coordInfo{Dimension: c.Dim, Units: c.Units(), Length: len(c.Values)}
		if len(c.Values) > 0 {
			ci.First = formatLabel(ds, c, c.Values[0])
			ci.Last = formatLabel(ds, c, c.Values[len(c.Values)-1])
		}
		info.Coordinates[name] = ci
	}
	for _, name := range ds.Variables() {
		v, err := ds.Variable(name)
		if err != nil {
			return nil, err
		}
		var finite []float64
		for _, val := range v.Data.Elements {
			if !math.IsNaN(val) && !math.IsInf(val, 0) {
				finite = append(finite, val)
			}
		}
		vi := variableInfo{Dimensions: v.Dims, Units: v.Units(), Min: "NaN", Mean: "NaN", Max: "NaN"}
		if len(finite) > 0 {
			vi.Min = fmt.Sprintf("%g", floats.Min(finite))
			vi.Max = fmt.Sprintf("%g", floats.Max(finite))
			vi.Mean = fmt.Sprintf("%g", floats.Sum(finite)/float64(len(finite)))
		}
		info.Variables[name] = vi
	}
	return info, nil
}

// formatLabel formats a coordinate label, as a date if c holds CF times.
func formatLabel(ds *climatology.Dataset, c *climatology.Coordinate, v float64) string {
	if u, err := ds.TimeUnits(c.Name); err == nil {
		return u.Time(v).Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("%g", v)
}

// writeInfo writes a TOML summary of ds to w.
func writeInfo(w io.Writer, ds *climatology.Dataset) error {
	info, err := summarize(ds)
	if err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(info)
}
