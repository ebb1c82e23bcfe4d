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

// Package climatology loads gridded climate datasets from NetCDF files and
// computes subsets, means, anomalies, and figures from them.
//
// Datasets are indexed by the dimensions time, level, lat, and lon, each
// labeled by a coordinate variable. A Plotter holds one dataset in memory
// and narrows it with a Filter before every operation:
//
//	p, err := climatology.New("air.nc")
//	if err != nil {
//		log.Fatal(err)
//	}
//	ds, err := p.Select(climatology.Filter{Level: climatology.At(850)})
//
// Figures are drawn with gonum/plot and handed to a Displayer, which by
// default saves them to image files and opens them.
package climatology

// Version gives the version of this software.
const Version = "1.0.0"
