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
	"strings"
	"time"
)

// TimeUnits describes a CF-convention time coordinate,
// e.g. "days since 2020-01-01 00:00:00".
type TimeUnits struct {
	Step  time.Duration
	Epoch time.Time
}

// timeLayouts are the reference date formats accepted in time units and
// in time selectors.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// ParseTime parses a date in one of the formats commonly found in
// NetCDF time units. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// Some files append a bare zone like "00:00:00 UTC" or a fractional
	// second "00:00:00.0".
	s = strings.TrimSuffix(s, " UTC")
	s = strings.TrimSuffix(s, ".0")
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("climatology: unrecognized time format %q", s)
}

// ParseTimeUnits parses a CF time units string.
func ParseTimeUnits(units string) (TimeUnits, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return TimeUnits{}, fmt.Errorf("climatology: %q are not time units", units)
	}
	var u TimeUnits
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		u.Step = time.Second
	case "minutes", "minute", "mins", "min":
		u.Step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		u.Step = time.Hour
	case "days", "day", "d":
		u.Step = 24 * time.Hour
	default:
		return TimeUnits{}, fmt.Errorf("climatology: unsupported time step %q in %q", parts[0], units)
	}
	var err error
	u.Epoch, err = ParseTime(parts[1])
	if err != nil {
		return TimeUnits{}, err
	}
	return u, nil
}

// Time returns the time represented by coordinate value v.
func (u TimeUnits) Time(v float64) time.Time {
	return u.Epoch.Add(time.Duration(math.Round(v * float64(u.Step))))
}

// Value returns the coordinate value representing t.
func (u TimeUnits) Value(t time.Time) float64 {
	return float64(t.Sub(u.Epoch)) / float64(u.Step)
}

// TimeUnits returns the CF time units of the named coordinate.
// Only the standard (proleptic Gregorian) calendar is supported.
func (d *Dataset) TimeUnits(coord string) (TimeUnits, error) {
	c := d.Coord(coord)
	if c == nil {
		return TimeUnits{}, fmt.Errorf("climatology: no coordinate %s", coord)
	}
	if cal, ok := c.Attributes["calendar"].(string); ok {
		switch strings.ToLower(cal) {
		case "standard", "gregorian", "proleptic_gregorian":
		default:
			return TimeUnits{}, fmt.Errorf("climatology: coordinate %s: unsupported calendar %q", coord, cal)
		}
	}
	return ParseTimeUnits(c.Units())
}
