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
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/climatology"
)

// sampleFile writes a small dataset with ten daily time steps, five
// levels, and a 5x5 latitude/longitude grid to a temporary NetCDF file.
func sampleFile(t *testing.T) string {
	t.Helper()
	r := rand.New(rand.NewSource(2))
	d := climatology.NewDataset()
	for _, dim := range []struct {
		name   string
		values []float64
		units  string
	}{
		{"time", []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, "days since 2020-01-01 00:00:00"},
		{"level", []float64{1000, 850, 700, 500, 300}, "hPa"},
		{"lat", []float64{-90, -45, 0, 45, 90}, "degrees_north"},
		{"lon", []float64{-180, -90, 0, 90, 180}, "degrees_east"},
	} {
		if err := d.AddDim(dim.name, len(dim.values)); err != nil {
			t.Fatal(err)
		}
		if err := d.AddCoord(dim.name, dim.name, dim.values, map[string]interface{}{"units": dim.units}); err != nil {
			t.Fatal(err)
		}
	}
	temp := sparse.ZerosDense(10, 5, 5, 5)
	for i := range temp.Elements {
		temp.Elements[i] = r.Float64()*30 + 270
	}
	if err := d.AddVariable("temperature", []string{"time", "level", "lat", "lon"},
		map[string]interface{}{"units": "K"}, temp); err != nil {
		t.Fatal(err)
	}
	precip := sparse.ZerosDense(10, 5, 5)
	for i := range precip.Elements {
		precip.Elements[i] = r.Float64() * 10
	}
	if err := d.AddVariable("precipitation", []string{"time", "lat", "lon"},
		map[string]interface{}{"units": "mm/day"}, precip); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "sample.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := d.Write(f); err != nil {
		t.Fatal(err)
	}
	return path
}

// setOptions resets the command options and then sets the given ones.
func setOptions(vals map[string]interface{}) {
	for _, option := range options {
		Cfg.Set(option.name, option.defaultVal)
	}
	Cfg.Set("noopen", true)
	for k, v := range vals {
		Cfg.Set(k, v)
	}
}

// This test needs to run before any options are overridden.
func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("CLIMATOLOGY_TEST_INPUT", sampleFile(t))
	os.Setenv("CLIMATOLOGY_TEST_OUTPUT", filepath.Join(dir, "selected.nc"))
	os.Setenv("CLIMATOLOGY_TEST_PLOTS", dir)
	Cfg.Set("config", "../cmd/climatology/configExample.toml")
	defer Cfg.Set("config", "")

	Root.SetArgs([]string{"select"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	ds, err := climatology.Open(filepath.Join(dir, "selected.nc"))
	if err != nil {
		t.Fatal(err)
	}
	for _, lat := range ds.Coord("lat").Values {
		if lat < 0 {
			t.Errorf("latitude %g should have been filtered out", lat)
		}
	}
	if n, _ := ds.Len("time"); n != 5 {
		t.Errorf("want 5 times but have %d", n)
	}
	if !ds.Has("temperature_c") {
		t.Error("derived variable temperature_c is missing")
	}
}

func TestVersion(t *testing.T) {
	setOptions(nil)
	buf := new(bytes.Buffer)
	Root.SetOut(buf)
	defer Root.SetOut(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "climatology v" + climatology.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("want %q but have %q", want, buf.String())
	}
}

func TestInfo(t *testing.T) {
	setOptions(map[string]interface{}{
		"InputFile": sampleFile(t),
		"Derived":   map[string]string{"precip_cm": "precipitation / 10"},
	})
	buf := new(bytes.Buffer)
	Root.SetOut(buf)
	defer Root.SetOut(nil)
	Root.SetArgs([]string{"info"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[Dimensions]", "[Variables.temperature]", "[Variables.precip_cm]",
		`First = "2020-01-01 00:00:00"`, `Units = "hPa"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("info output is missing %q:\n%s", want, buf.String())
		}
	}
}

func TestSelectCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "level850.nc")
	setOptions(map[string]interface{}{
		"InputFile":  sampleFile(t),
		"OutputFile": out,
		"level":      "850",
	})
	Root.SetArgs([]string{"select"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	ds, err := climatology.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if ds.HasDim("level") {
		t.Error("level should not be a dimension")
	}
	if c := ds.Coord("level"); c == nil || c.Values[0] != 850 {
		t.Errorf("level should be 850 but is %+v", c)
	}
}

func TestMeanCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mean.nc")
	setOptions(map[string]interface{}{
		"InputFile":  sampleFile(t),
		"OutputFile": out,
		"dims":       []string{"time", "lat"},
	})
	Root.SetArgs([]string{"mean"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	ds, err := climatology.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if ds.HasDim("time") || ds.HasDim("lat") {
		t.Errorf("have dimensions %v", ds.Dims())
	}

	setOptions(map[string]interface{}{
		"InputFile":  sampleFile(t),
		"OutputFile": out,
		"dims":       []string{"height"},
	})
	if err := meanCmd.RunE(meanCmd, nil); err == nil {
		t.Error("averaging over a missing dimension should fail")
	}
}

func TestAnomaliesCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "anomalies.nc")
	setOptions(map[string]interface{}{
		"InputFile":  sampleFile(t),
		"OutputFile": out,
		"variable":   "precipitation",
		"lon":        "0",
	})
	Root.SetArgs([]string{"anomalies"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	ds, err := climatology.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	v, err := ds.Variable("precipitation")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(v.Dims, ",") != "time,lat" {
		t.Errorf("have dimensions %v", v.Dims)
	}
	if ds.Has("temperature") {
		t.Error("only the anomalies should be written")
	}
}

func TestPlotCmds(t *testing.T) {
	for _, cmd := range []string{"plot", "trend"} {
		t.Run(cmd, func(t *testing.T) {
			dir := t.TempDir()
			setOptions(map[string]interface{}{
				"InputFile": sampleFile(t),
				"variable":  "temperature",
				"level":     "500",
				"PlotDir":   dir,
				"Color":     "#1f77b4",
				"LineStyle": "--",
			})
			Root.SetArgs([]string{cmd})
			if err := Root.Execute(); err != nil {
				t.Fatal(err)
			}
			files, err := filepath.Glob(filepath.Join(dir, "climatology_*.png"))
			if err != nil {
				t.Fatal(err)
			}
			if len(files) != 1 {
				t.Errorf("want 1 figure but have %v", files)
			}
		})
	}
}

func TestPlotCmdErrors(t *testing.T) {
	setOptions(map[string]interface{}{
		"InputFile": sampleFile(t),
		"variable":  "invalid_var",
		"PlotDir":   t.TempDir(),
	})
	if err := plotCmd.RunE(plotCmd, nil); err == nil || !strings.Contains(err.Error(), "not found in the dataset") {
		t.Errorf("want not found error but have %v", err)
	}
	setOptions(map[string]interface{}{
		"InputFile": sampleFile(t),
		"variable":  "temperature",
		"dim":       "invalid_dim",
		"PlotDir":   t.TempDir(),
	})
	if err := trendCmd.RunE(trendCmd, nil); err == nil || !strings.Contains(err.Error(), "Dimension 'invalid_dim' not found") {
		t.Errorf("want dimension not found error but have %v", err)
	}
	setOptions(map[string]interface{}{
		"InputFile": filepath.Join(t.TempDir(), "missing.nc"),
		"variable":  "temperature",
	})
	if err := trendCmd.RunE(trendCmd, nil); err == nil {
		t.Error("missing input file should fail")
	}
}

func TestConfigHandler(t *testing.T) {
	setOptions(nil)
	defer Cfg.Set("config", "")
	for _, test := range []struct {
		name   string
		query  url.Values
		status int
	}{
		{name: "missing", query: url.Values{}, status: http.StatusBadRequest},
		{name: "bad file", query: url.Values{"config": {"does_not_exist.toml"}}, status: http.StatusNoContent},
		{name: "example", query: url.Values{"config": {"../cmd/climatology/configExample.toml"}}, status: http.StatusOK},
	} {
		t.Run(test.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			configHandler(w, httptest.NewRequest("GET", "/setConfig?"+test.query.Encode(), nil))
			if w.Code != test.status {
				t.Fatalf("want status %d but have %d: %s", test.status, w.Code, w.Body.String())
			}
			if test.status != http.StatusOK {
				return
			}
			config := make(map[string]interface{})
			if err := json.NewDecoder(w.Body).Decode(&config); err != nil {
				t.Fatal(err)
			}
			if _, ok := config["LogLevel"]; !ok {
				t.Errorf("response is missing LogLevel: %v", config)
			}
		})
	}
}
