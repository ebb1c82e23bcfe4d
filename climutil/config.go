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
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/climatology"
	"github.com/spf13/cast"
	"gonum.org/v1/plot/vg"
)

// filterConfig reads the lat, lon, level, and time selectors from cfg.
func filterConfig(cfg *viper.Viper) (climatology.Filter, error) {
	var f climatology.Filter
	for _, s := range []struct {
		name string
		sel  *climatology.Selector
	}{
		{"lat", &f.Lat},
		{"lon", &f.Lon},
		{"level", &f.Level},
		{"time", &f.Time},
	} {
		var err error
		*s.sel, err = climatology.ParseSelector(os.ExpandEnv(cfg.GetString(s.name)))
		if err != nil {
			return f, fmt.Errorf("climutil: parsing %s selector: %v", s.name, err)
		}
	}
	return f, nil
}

// styleConfig reads the figure style options from cfg.
func styleConfig(cfg *viper.Viper) (climatology.Style, error) {
	width, err := cast.ToFloat64E(cfg.Get("LineWidth"))
	if err != nil {
		return climatology.Style{}, fmt.Errorf("climutil: LineWidth: %v", err)
	}
	s := climatology.Style{
		Title:     cfg.GetString("Title"),
		Color:     cfg.GetString("Color"),
		LineStyle: cfg.GetString("LineStyle"),
		LineWidth: width,
		XLabel:    cfg.GetString("XLabel"),
		YLabel:    cfg.GetString("YLabel"),
	}
	if _, err := climatology.ParseColor(s.Color); s.Color != "" && err != nil {
		return s, err
	}
	return s, nil
}

// displayConfig returns the figure display specified by cfg.
func displayConfig(cfg *viper.Viper, log logrus.FieldLogger) (*climatology.FileDisplay, error) {
	dir := os.ExpandEnv(cfg.GetString("PlotDir"))
	if dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("climutil: creating PlotDir: %v", err)
		}
	}
	format := strings.TrimPrefix(strings.ToLower(cfg.GetString("PlotFormat")), ".")
	switch format {
	case "png", "jpg", "jpeg", "tif", "tiff", "svg", "pdf", "eps":
	default:
		return nil, fmt.Errorf("climutil: unsupported PlotFormat %q", format)
	}
	width, err := vg.ParseLength(cfg.GetString("PlotWidth"))
	if err != nil {
		return nil, fmt.Errorf("climutil: PlotWidth: %v", err)
	}
	height, err := vg.ParseLength(cfg.GetString("PlotHeight"))
	if err != nil {
		return nil, fmt.Errorf("climutil: PlotHeight: %v", err)
	}
	return &climatology.FileDisplay{
		Dir:    dir,
		Width:  width,
		Height: height,
		Format: format,
		Open:   !cfg.GetBool("noopen"),
		Log:    log,
	}, nil
}

// dimsConfig returns the list of dimensions in the "dims" option,
// or nil if it is empty.
func dimsConfig(cfg *viper.Viper) []interface{} {
	var o []interface{}
	for _, d := range expandStringSlice(cfg.GetStringSlice("dims")) {
		if d = strings.TrimSpace(d); d != "" {
			o = append(o, d)
		}
	}
	return o
}

// loadPlotter downloads the InputFile if necessary and creates a Plotter
// for it, adding any variables in the Derived option.
func loadPlotter(ctx context.Context, cfg *viper.Viper, log logrus.FieldLogger) (*climatology.Plotter, error) {
	input := os.ExpandEnv(cfg.GetString("InputFile"))
	if input == "" {
		return nil, fmt.Errorf(`you need to specify an input file configuration variable (for example: InputFile="air.nc")`)
	}
	path, cleanup, err := maybeDownload(ctx, input, log)
	if err != nil {
		return nil, err
	}
	// New reads the whole file into memory.
	p, err := climatology.New(path)
	cleanup()
	if err != nil {
		return nil, err
	}
	p.Log = log

	derived, err := GetStringMapString("Derived", cfg)
	if err != nil {
		return nil, err
	}
	if len(derived) > 0 {
		ds := p.Dataset()
		names := make([]string, 0, len(derived))
		for name := range derived {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			expr := strings.Replace(derived[name], "\n", " ", -1)
			if ds, err = ds.Derive(os.ExpandEnv(name), os.ExpandEnv(expr)); err != nil {
				return nil, err
			}
		}
		p = climatology.NewFromDataset(ds)
		p.Log = log
	}
	return p, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(ctx context.Context, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	if IsBlob(f) {
		bucketName, _, err := splitBlob(f)
		if err != nil {
			return f, err
		}
		b, err := OpenBucket(ctx, bucketName)
		if err != nil {
			return f, fmt.Errorf("climutil: error when checking OutputFile location: %v", err)
		}
		return f, b.Close()
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("climutil: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// writeOutput writes ds to the NetCDF file or blob at path.
func writeOutput(ctx context.Context, ds *climatology.Dataset, path string, log logrus.FieldLogger) error {
	local := path
	if IsBlob(path) {
		dir, err := ioutil.TempDir("", "climatology")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		local = filepath.Join(dir, "output.nc")
	}
	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("climutil: creating output file: %v", err)
	}
	if err := ds.Write(f); err != nil {
		f.Close()
		return err
	}
	if IsBlob(path) {
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return err
		}
		if err := copyToBlob(ctx, path, f); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":    path,
		"dataset": ds.String(),
	}).Info("wrote output")
	return nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("climutil: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("climutil: invalid type for %s: %#v", varName, i)
	}
}
