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
	"image/color"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Style holds the appearance options of a figure. Empty fields take their
// values from DefaultStyle, and an empty Title is replaced by a title
// describing the plotted variable.
type Style struct {
	Title string

	// Color is a colour name such as "blue" or "gray40", a single-letter
	// abbreviation such as "k", or a hexadecimal "#rrggbb" value.
	Color string

	// LineStyle is one of "-", "--", ":" and "-." or the equivalent
	// names solid, dashed, dotted and dashdot.
	LineStyle string

	// LineWidth is the line width in points.
	LineWidth float64

	XLabel, YLabel string
}

// DefaultStyle returns the style used for fields that are not set.
func DefaultStyle() Style {
	return Style{
		Color:     "blue",
		LineStyle: "-",
		LineWidth: 2,
	}
}

// withDefaults fills in empty fields of s.
func (s Style) withDefaults() Style {
	def := DefaultStyle()
	if s.Color == "" {
		s.Color = def.Color
	}
	if s.LineStyle == "" {
		s.LineStyle = def.LineStyle
	}
	if s.LineWidth == 0 {
		s.LineWidth = def.LineWidth
	}
	return s
}

// lineStyle converts s into a gonum line style.
func (s Style) lineStyle() (draw.LineStyle, error) {
	s = s.withDefaults()
	c, err := ParseColor(s.Color)
	if err != nil {
		return draw.LineStyle{}, err
	}
	dashes, err := parseDashes(s.LineStyle)
	if err != nil {
		return draw.LineStyle{}, err
	}
	if s.LineWidth < 0 {
		return draw.LineStyle{}, fmt.Errorf("climatology: negative line width %g", s.LineWidth)
	}
	return draw.LineStyle{
		Color:  c,
		Width:  vg.Points(s.LineWidth),
		Dashes: dashes,
	}, nil
}

// Colors holds the named colours accepted by ParseColor.
var Colors = map[string]color.RGBA{
	"red":     {0xff, 0x00, 0x00, 0xff},
	"green":   {0x00, 0x80, 0x00, 0xff},
	"blue":    {0x00, 0x00, 0xff, 0xff},
	"cyan":    {0x00, 0xff, 0xff, 0xff},
	"magenta": {0xff, 0x00, 0xff, 0xff},
	"yellow":  {0xff, 0xff, 0x00, 0xff},
	"orange":  {0xff, 0xa5, 0x00, 0xff},
	"purple":  {0x80, 0x00, 0x80, 0xff},
	"brown":   {0xa5, 0x2a, 0x2a, 0xff},
	"white":   {0xff, 0xff, 0xff, 0xff},
	"gray20":  {0x33, 0x33, 0x33, 0xff},
	"gray40":  {0x66, 0x66, 0x66, 0xff},
	"gray":    {0x80, 0x80, 0x80, 0xff},
	"grey":    {0x80, 0x80, 0x80, 0xff},
	"gray60":  {0x99, 0x99, 0x99, 0xff},
	"gray80":  {0xcc, 0xcc, 0xcc, 0xff},
	"black":   {0x00, 0x00, 0x00, 0xff},
}

var colorAbbreviations = map[string]string{
	"r": "red",
	"g": "green",
	"b": "blue",
	"c": "cyan",
	"m": "magenta",
	"y": "yellow",
	"w": "white",
	"k": "black",
}

// ParseColor returns the colour described by s.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "#") {
		var r, g, b uint8
		if len(s) != 7 {
			return color.RGBA{}, fmt.Errorf("climatology: invalid colour %q", s)
		}
		if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("climatology: invalid colour %q", s)
		}
		return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
	}
	if full, ok := colorAbbreviations[s]; ok {
		s = full
	}
	if c, ok := Colors[s]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("climatology: unknown colour %q", s)
}

func parseDashes(s string) ([]vg.Length, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "-", "solid":
		return nil, nil
	case "--", "dashed":
		return []vg.Length{vg.Points(6), vg.Points(3)}, nil
	case ":", "dotted":
		return []vg.Length{vg.Points(1), vg.Points(2)}, nil
	case "-.", "dashdot":
		return []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}, nil
	}
	return nil, fmt.Errorf("climatology: unknown line style %q", s)
}
