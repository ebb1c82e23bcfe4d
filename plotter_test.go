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
	"errors"
	"math"
	"os"
	"reflect"
	"regexp"
	"testing"

	"github.com/kr/pretty"
	"gonum.org/v1/plot"
)

// displayRecorder records the figures passed to it.
type displayRecorder struct {
	names   []string
	figures []*plot.Plot
}

func (r *displayRecorder) Display(name string, p *plot.Plot) error {
	r.names = append(r.names, name)
	r.figures = append(r.figures, p)
	return nil
}

func testPlotter(t *testing.T) (*Plotter, *displayRecorder) {
	t.Helper()
	p, err := New(writeDataset(t, sampleDataset(t)))
	if err != nil {
		t.Fatal(err)
	}
	r := new(displayRecorder)
	p.Display = r
	return p, r
}

func TestNew(t *testing.T) {
	p, _ := testPlotter(t)
	want := sampleDataset(t)
	for _, dim := range want.Dims() {
		wn, _ := want.Len(dim)
		hn, ok := p.Dataset().Len(dim)
		if !ok || hn != wn {
			t.Errorf("dimension %s: want length %d but have %d", dim, wn, hn)
		}
	}
	for _, v := range want.Variables() {
		if !p.Dataset().Has(v) {
			t.Errorf("missing variable %s", v)
		}
	}
}

func TestPlotterSelect(t *testing.T) {
	p, _ := testPlotter(t)

	s, err := p.Select(Filter{Lat: Between(0, 90)})
	if err != nil {
		t.Fatal(err)
	}
	for _, lat := range s.Coord(DimLat).Values {
		if lat < 0 || lat > 90 {
			t.Errorf("latitude %g out of range", lat)
		}
	}

	s, err = p.Select(Filter{Level: At(850)})
	if err != nil {
		t.Fatal(err)
	}
	if c := s.Coord(DimLevel); c == nil || c.Values[0] != 850 || len(c.Values) != 1 {
		t.Errorf("level should be 850 but is %+v", c)
	}

	s, err = p.Select(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(s.Dims(), p.Dataset().Dims()); len(diff) > 0 {
		t.Error(diff)
	}

	if _, err := p.Select(Filter{Lat: At(12)}); err == nil {
		t.Error("selecting a missing label should fail")
	}
}

func TestPlotterMean(t *testing.T) {
	p, _ := testPlotter(t)

	m, err := p.Mean("time", Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if m.HasDim(DimTime) {
		t.Error("time should be averaged out")
	}

	for _, dims := range []interface{}{
		[]string{"time", "lat"},
		[]interface{}{"time", "lat"},
	} {
		m, err := p.Mean(dims, Filter{})
		if err != nil {
			t.Fatal(err)
		}
		if diff := pretty.Diff(m.Dims(), []string{DimLevel, DimLon}); len(diff) > 0 {
			t.Errorf("%v: dimensions: %v", dims, diff)
		}
	}

	m, err = p.Mean(nil, Filter{Level: At(850)})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(m.Dims(), []string{DimTime, DimLat, DimLon}); len(diff) > 0 {
		t.Error(diff)
	}

	m, err = p.Mean("level", Filter{Level: Between(500, 850)})
	if err != nil {
		t.Fatal(err)
	}
	full, _ := p.Dataset().Variable("temperature")
	temp, _ := m.Variable("temperature")
	want := (full.Data.Get(0, 1, 0, 0) + full.Data.Get(0, 2, 0, 0) + full.Data.Get(0, 3, 0, 0)) / 3
	if have := temp.Data.Get(0, 0, 0); different(have, want, testTolerance) {
		t.Errorf("want %g but have %g", want, have)
	}
}

func TestPlotterLeavesDatasetUnchanged(t *testing.T) {
	p, _ := testPlotter(t)
	want := p.Dataset()
	unchanged := func(op string) {
		t.Helper()
		if !reflect.DeepEqual(p.Dataset(), want) {
			t.Errorf("%s changed the dataset", op)
		}
	}

	for _, f := range []Filter{{}, {Lat: Between(0, 90)}, {Level: At(850)}} {
		s, err := p.Select(f)
		if err != nil {
			t.Fatal(err)
		}
		s.Attributes["title"] = "changed"
		for _, name := range s.Coords() {
			c := s.Coord(name)
			c.Values[0] = 12345
			c.Attributes["units"] = "changed"
		}
		if lon := s.Coord(DimLon); lon.Values[0] != -180 {
			t.Errorf("select %v: changing a returned coordinate changed the selection", f)
		}
		unchanged("select " + f.String())
	}

	m, err := p.Mean([]string{"time", "lat"}, Filter{Lon: Between(-90, 90)})
	if err != nil {
		t.Fatal(err)
	}
	m.Attributes["title"] = "changed"
	if err := m.AddDim("extra", 2); err != nil {
		t.Fatal(err)
	}
	unchanged("mean")

	m, err = p.Mean(nil, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.AddCoord("extra", "", []float64{1}, nil); err != nil {
		t.Fatal(err)
	}
	unchanged("mean without dimensions")

	a, err := p.Anomalies("temperature", "time", Filter{Level: At(500)})
	if err != nil {
		t.Fatal(err)
	}
	a.Data.Elements[0] = 12345
	a.Attributes["units"] = "changed"
	unchanged("anomalies")

	d := p.Dataset()
	d.Attributes["title"] = "changed"
	if _, err := d.Derive("temperature_c", "temperature - 273.15"); err != nil {
		t.Fatal(err)
	}
	unchanged("Dataset")
}

func TestPlotterMeanErrors(t *testing.T) {
	p, _ := testPlotter(t)

	var te *TypeError
	if _, err := p.Mean(5, Filter{}); !errors.As(err, &te) || te.Element {
		t.Errorf("want *TypeError but have %v", err)
	}
	if _, err := p.Mean([]interface{}{"time", 3}, Filter{}); !errors.As(err, &te) || !te.Element {
		t.Errorf("want element *TypeError but have %v", err)
	}

	_, err := p.Mean("invalid_dim", Filter{})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != KindDimension {
		t.Fatalf("want dimension *NotFoundError but have %v", err)
	}
	if !regexp.MustCompile("Dimension .* not found").MatchString(err.Error()) {
		t.Errorf("message: %s", err)
	}

	// level is no longer a dimension after a scalar selection.
	if _, err := p.Mean("level", Filter{Level: At(850)}); !errors.As(err, &nf) {
		t.Errorf("want *NotFoundError but have %v", err)
	}
}

func TestPlotterAnomalies(t *testing.T) {
	p, _ := testPlotter(t)
	a, err := p.Anomalies("temperature", "time", Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(a.Dims, []string{DimTime, DimLevel, DimLat, DimLon}); len(diff) > 0 {
		t.Error(diff)
	}
	m, err := a.Mean(DimTime)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range m.Data.Elements {
		if math.Abs(v) > testTolerance {
			t.Fatalf("element %d: mean anomaly should be zero but is %g", i, v)
		}
	}

	// The default dimension is time.
	b, err := p.Anomalies("temperature", "", Filter{Lat: At(0)})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(b.Data.Shape, []int{10, 5, 5}); len(diff) > 0 {
		t.Error(diff)
	}

	_, err = p.Anomalies("invalid_var", "", Filter{})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != KindVariable {
		t.Fatalf("want variable *NotFoundError but have %v", err)
	}
	if !regexp.MustCompile("not found in the dataset").MatchString(err.Error()) {
		t.Errorf("message: %s", err)
	}
}

func TestPlotTrend(t *testing.T) {
	p, r := testPlotter(t)
	if err := p.PlotTrend("temperature", "time", Filter{}, DefaultStyle()); err != nil {
		t.Fatal(err)
	}
	if len(r.figures) != 1 {
		t.Fatalf("want 1 figure but have %d", len(r.figures))
	}
	fig := r.figures[0]
	if fig.Title.Text != "Trend of temperature over time" {
		t.Errorf("title: %s", fig.Title.Text)
	}
	if fig.X.Label.Text != "time" || fig.Y.Label.Text != "temperature" {
		t.Errorf("labels: %s, %s", fig.X.Label.Text, fig.Y.Label.Text)
	}

	// Variables without one of the dataset's dimensions can still be plotted.
	err := p.PlotTrend("precipitation", "lat", Filter{},
		Style{Title: "rain", Color: "#00ff00", LineStyle: ":", XLabel: "latitude", YLabel: "mm/day"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.figures) != 2 || r.figures[1].Title.Text != "rain" || r.figures[1].X.Label.Text != "latitude" {
		t.Errorf("custom style not applied")
	}
}

func TestPlotTrendErrors(t *testing.T) {
	p, r := testPlotter(t)
	var nf *NotFoundError

	err := p.PlotTrend("temperature", "invalid_dim", Filter{}, DefaultStyle())
	if !errors.As(err, &nf) || nf.Kind != KindDimension {
		t.Errorf("want dimension *NotFoundError but have %v", err)
	}
	if err != nil && !regexp.MustCompile("Dimension .* not found").MatchString(err.Error()) {
		t.Errorf("message: %s", err)
	}
	if err := p.PlotTrend("invalid_var", "time", Filter{}, DefaultStyle()); !errors.As(err, &nf) || nf.Kind != KindVariable {
		t.Errorf("want variable *NotFoundError but have %v", err)
	}
	if err := p.PlotTrend("precipitation", "level", Filter{}, DefaultStyle()); !errors.As(err, &nf) || nf.In != "precipitation" {
		t.Errorf("want *NotFoundError in precipitation but have %v", err)
	}
	if err := p.PlotTrend("temperature", "time", Filter{}, Style{Color: "bleu"}); err == nil {
		t.Error("invalid colour should fail")
	}
	if len(r.figures) != 0 {
		t.Errorf("failed plots should not be displayed, but %d were", len(r.figures))
	}
}

func TestPlot(t *testing.T) {
	p, r := testPlotter(t)
	tests := []struct {
		name     string
		variable string
		filter   Filter
		title    string
		kind     figureKind
	}{
		{
			name:     "histogram",
			variable: "temperature",
			title:    "temperature",
			kind:     histogramKind,
		},
		{
			name:     "heat map",
			variable: "precipitation",
			filter:   Filter{Time: At(3)},
			title:    "precipitation",
			kind:     heatMapKind,
		},
		{
			name:     "line",
			variable: "temperature",
			filter:   Filter{Lat: At(0), Lon: At(90), Level: At(500)},
			title:    "temperature",
			kind:     lineKind,
		},
		{
			name:     "coordinate",
			variable: "lat",
			title:    "lat",
			kind:     lineKind,
		},
	}
	for i, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := p.Plot(test.variable, test.filter, Style{}); err != nil {
				t.Fatal(err)
			}
			if len(r.figures) != i+1 {
				t.Fatalf("want %d figures but have %d", i+1, len(r.figures))
			}
			fig := r.figures[i]
			if fig.Title.Text != test.title {
				t.Errorf("title: want %s but have %s", test.title, fig.Title.Text)
			}
			if !legendDrawn(fig) {
				t.Error("figure should have a legend entry")
			}
			ds, err := p.Select(test.filter)
			if err != nil {
				t.Fatal(err)
			}
			v, err := ds.Variable(test.variable)
			if err != nil {
				t.Fatal(err)
			}
			if kind := plotKind(v); kind != test.kind {
				t.Errorf("figure kind: want %d but have %d", test.kind, kind)
			}
		})
	}
}

func TestPlotErrors(t *testing.T) {
	p, r := testPlotter(t)
	err := p.Plot("invalid_var", Filter{}, DefaultStyle())
	if err == nil || !regexp.MustCompile("not found in the dataset").MatchString(err.Error()) {
		t.Errorf("want not found error but have %v", err)
	}
	if err := p.Plot("temperature", Filter{}, Style{LineStyle: "~"}); err == nil {
		t.Error("invalid line style should fail")
	}
	if len(r.figures) != 0 {
		t.Errorf("failed plots should not be displayed, but %d were", len(r.figures))
	}
}

func TestFileDisplay(t *testing.T) {
	dir := t.TempDir()
	p, err := New(writeDataset(t, sampleDataset(t)))
	if err != nil {
		t.Fatal(err)
	}
	fd := &FileDisplay{Dir: dir, Format: "png"}
	p.Display = fd
	if err := p.PlotTrend("temperature", "time", Filter{}, DefaultStyle()); err != nil {
		t.Fatal(err)
	}
	path := fd.Path("trend of temperature over time")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("figure was not saved: %v", err)
	}

	var calls int
	p.Display = DisplayFunc(func(string, *plot.Plot) error {
		calls++
		return nil
	})
	if err := p.Plot("temperature", Filter{}, DefaultStyle()); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("want 1 display call but have %d", calls)
	}
}
