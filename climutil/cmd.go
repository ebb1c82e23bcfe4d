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

// Package climutil contains the command-line interface for
// the climatology package.
package climutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/ctessum/gobra"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/climatology"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	dataSets := []*pflag.FlagSet{infoCmd.Flags(), selectCmd.Flags(), meanCmd.Flags(),
		anomaliesCmd.Flags(), plotCmd.Flags(), trendCmd.Flags()}
	filterSets := dataSets[1:]
	figureSets := []*pflag.FlagSet{plotCmd.Flags(), trendCmd.Flags()}
	outputSets := []*pflag.FlagSet{selectCmd.Flags(), meanCmd.Flags(), anomaliesCmd.Flags()}

	// Options are the configuration options available to climatology.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum level of log messages to print.
              Options are panic, fatal, error, warning, info, debug, and trace.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to the NetCDF file holding the dataset.
              It can be a local file, an http(s) URL, or a file://, gs://,
              or s3:// blob. It can contain environment variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   dataSets,
		},
		{
			name: "Derived",
			usage: `
              Derived specifies additional variables calculated from the
              variables in the input file, in the format
              {"name":"expression"}, e.g. {"temperature_c":"temperature - 273.15"}.
              Expressions can use the functions exp, log, sqrt, and abs.`,
			defaultVal: map[string]string{},
			flagsets:   dataSets,
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the NetCDF file to write results to.
              It can be a local file or a file://, gs://, or s3:// blob.
              It can contain environment variables.`,
			shorthand:  "o",
			defaultVal: "climatology_output.nc",
			flagsets:   outputSets,
		},
		{
			name: "lat",
			usage: `
              lat selects latitudes, either a single label (e.g. 45)
              or an inclusive range (e.g. 0:90). Empty means all.`,
			defaultVal: "",
			flagsets:   filterSets,
		},
		{
			name: "lon",
			usage: `
              lon selects longitudes, either a single label (e.g. -90)
              or an inclusive range (e.g. -180:0). Empty means all.`,
			defaultVal: "",
			flagsets:   filterSets,
		},
		{
			name: "level",
			usage: `
              level selects vertical levels, either a single label (e.g. 850)
              or an inclusive range (e.g. 500:850). Empty means all.`,
			defaultVal: "",
			flagsets:   filterSets,
		},
		{
			name: "time",
			usage: `
              time selects times, either a single date (e.g. 2020-01-03) or an
              inclusive range (e.g. 2020-01-01:2020-01-05). Raw coordinate
              values are also accepted. Empty means all.`,
			defaultVal: "",
			flagsets:   filterSets,
		},
		{
			name: "dims",
			usage: `
              dims is the list of dimensions to average over. If empty,
              the selected dataset is written unchanged.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{meanCmd.Flags()},
		},
		{
			name: "variable",
			usage: `
              variable is the name of the variable to calculate or plot.`,
			shorthand:  "v",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{anomaliesCmd.Flags(), plotCmd.Flags(), trendCmd.Flags()},
		},
		{
			name: "dim",
			usage: `
              dim is the dimension to calculate anomalies over or to
              plot the trend along.`,
			defaultVal: climatology.DimTime,
			flagsets:   []*pflag.FlagSet{anomaliesCmd.Flags(), trendCmd.Flags()},
		},
		{
			name: "Title",
			usage: `
              Title is the figure title. If empty, a title is made
              from the variable name.`,
			defaultVal: "",
			flagsets:   figureSets,
		},
		{
			name: "Color",
			usage: `
              Color is the line color, as a name (e.g. blue, gray40)
              or in hexadecimal format (e.g. #1f77b4).`,
			defaultVal: "blue",
			flagsets:   figureSets,
		},
		{
			name: "LineStyle",
			usage: `
              LineStyle is the line style: - (solid), -- (dashed),
              : (dotted), or -. (dashdot).`,
			defaultVal: "-",
			flagsets:   figureSets,
		},
		{
			name: "LineWidth",
			usage: `
              LineWidth is the line width in points.`,
			defaultVal: 2.0,
			flagsets:   figureSets,
		},
		{
			name: "XLabel",
			usage: `
              XLabel is the label of the x axis. If empty, a label
              is chosen automatically.`,
			defaultVal: "",
			flagsets:   figureSets,
		},
		{
			name: "YLabel",
			usage: `
              YLabel is the label of the y axis. If empty, a label
              is chosen automatically.`,
			defaultVal: "",
			flagsets:   figureSets,
		},
		{
			name: "PlotDir",
			usage: `
              PlotDir is the directory figures are saved in. If empty, the
              system temporary directory is used.`,
			defaultVal: "",
			flagsets:   figureSets,
		},
		{
			name: "PlotFormat",
			usage: `
              PlotFormat is the image format of saved figures: png, jpg,
              tiff, svg, pdf, or eps.`,
			defaultVal: "png",
			flagsets:   figureSets,
		},
		{
			name: "PlotWidth",
			usage: `
              PlotWidth is the width of saved figures, e.g. 6.4in or 16cm.`,
			defaultVal: "6.4in",
			flagsets:   figureSets,
		},
		{
			name: "PlotHeight",
			usage: `
              PlotHeight is the height of saved figures, e.g. 4.8in or 12cm.`,
			defaultVal: "4.8in",
			flagsets:   figureSets,
		},
		{
			name: "noopen",
			usage: `
              noopen specifies that saved figures should not be opened
              in the default image viewer.`,
			defaultVal: false,
			flagsets:   figureSets,
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CLIMATOLOGY")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(infoCmd)
	Root.AddCommand(selectCmd)
	Root.AddCommand(meanCmd)
	Root.AddCommand(anomaliesCmd)
	Root.AddCommand(plotCmd)
	Root.AddCommand(trendCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("climatology: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("climatology: LogLevel: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "climatology",
	Short: "Explore gridded climate datasets.",
	Long: `climatology loads gridded climate datasets from NetCDF files and
calculates subsets, means, and anomalies from them, or plots them.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CLIMATOLOGY_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of climatology.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("climatology v%s\n", climatology.Version)
	},
	DisableAutoGenTag: true,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize a dataset",
	Long: `info prints the dimensions, coordinates, and variables of the
dataset in InputFile, in TOML format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logrus.StandardLogger()
		p, err := loadPlotter(context.TODO(), Cfg, log)
		if err != nil {
			return err
		}
		return writeInfo(cmd.OutOrStdout(), p.Dataset())
	},
	DisableAutoGenTag: true,
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select a subset of a dataset",
	Long: `select picks the labels specified by the lat, lon, level, and time
options from the dataset in InputFile, and writes the result to OutputFile.
A single label removes its dimension; a range keeps it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.TODO()
		log := logrus.StandardLogger()
		outputFile, err := checkOutputFile(ctx, Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		f, err := filterConfig(Cfg)
		if err != nil {
			return err
		}
		p, err := loadPlotter(ctx, Cfg, log)
		if err != nil {
			return err
		}
		ds, err := p.Select(f)
		if err != nil {
			return err
		}
		return writeOutput(ctx, ds, outputFile, log)
	},
	DisableAutoGenTag: true,
}

var meanCmd = &cobra.Command{
	Use:   "mean",
	Short: "Average a dataset",
	Long: `mean selects from the dataset in InputFile as the select command does,
averages the result over the dimensions in dims, and writes it to OutputFile.
Missing values are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.TODO()
		log := logrus.StandardLogger()
		outputFile, err := checkOutputFile(ctx, Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		f, err := filterConfig(Cfg)
		if err != nil {
			return err
		}
		p, err := loadPlotter(ctx, Cfg, log)
		if err != nil {
			return err
		}
		var dims interface{}
		if d := dimsConfig(Cfg); len(d) > 0 {
			dims = d
		}
		ds, err := p.Mean(dims, f)
		if err != nil {
			return err
		}
		return writeOutput(ctx, ds, outputFile, log)
	},
	DisableAutoGenTag: true,
}

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Calculate anomalies",
	Long: `anomalies selects from the dataset in InputFile as the select command does,
calculates the deviation of variable from its mean over dim, and writes
the result with its coordinates to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.TODO()
		log := logrus.StandardLogger()
		outputFile, err := checkOutputFile(ctx, Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		f, err := filterConfig(Cfg)
		if err != nil {
			return err
		}
		p, err := loadPlotter(ctx, Cfg, log)
		if err != nil {
			return err
		}
		a, err := p.Anomalies(Cfg.GetString("variable"), Cfg.GetString("dim"), f)
		if err != nil {
			return err
		}
		ds, err := p.Select(f)
		if err != nil {
			return err
		}
		out, err := ds.ForVariable(a)
		if err != nil {
			return err
		}
		return writeOutput(ctx, out, outputFile, log)
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot a variable",
	Long: `plot selects from the dataset in InputFile as the select command does
and draws variable. One-dimensional variables are drawn as lines,
two-dimensional variables as heat maps, and others as histograms.
The figure is saved in PlotDir and opened unless --noopen is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, f, s, err := figureSetup()
		if err != nil {
			return err
		}
		return p.Plot(Cfg.GetString("variable"), f, s)
	},
	DisableAutoGenTag: true,
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Plot the trend of a variable",
	Long: `trend selects from the dataset in InputFile as the select command does,
averages variable over all of its dimensions except dim, and draws
the result as a line along dim.
The figure is saved in PlotDir and opened unless --noopen is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, f, s, err := figureSetup()
		if err != nil {
			return err
		}
		return p.PlotTrend(Cfg.GetString("variable"), Cfg.GetString("dim"), f, s)
	},
	DisableAutoGenTag: true,
}

// figureSetup reads the configuration shared by the plotting commands.
func figureSetup() (*climatology.Plotter, climatology.Filter, climatology.Style, error) {
	log := logrus.StandardLogger()
	f, err := filterConfig(Cfg)
	if err != nil {
		return nil, f, climatology.Style{}, err
	}
	s, err := styleConfig(Cfg)
	if err != nil {
		return nil, f, s, err
	}
	d, err := displayConfig(Cfg, log)
	if err != nil {
		return nil, f, s, err
	}
	p, err := loadPlotter(context.TODO(), Cfg, log)
	if err != nil {
		return nil, f, s, err
	}
	p.Display = d
	return p, f, s, nil
}

// configHandler reads the configuration file given in the "config"
// form value and responds with the resulting option values.
func configHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	configFile := r.Form.Get("config")
	if configFile == "" {
		http.Error(w, "missing config parameter", http.StatusBadRequest)
		return
	}
	Cfg.Set("config", configFile)
	if err := setConfig(); err != nil {
		http.Error(w, err.Error(), http.StatusNoContent)
		return
	}
	config := make(map[string]interface{})
	for _, option := range options {
		config[option.name] = Cfg.Get(option.name)
	}
	e := json.NewEncoder(w)
	if err := e.Encode(config); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// StartWebServer starts the web server.
func StartWebServer() {
	if err := setConfig(); err != nil {
		// The configuration can still be fixed in the GUI.
		logrus.WithError(err).Warn("problem with initial configuration")
	}

	http.HandleFunc("/setConfig", configHandler)

	logrus.Info("Loading front-end...")

	for _, cmd := range []*cobra.Command{Root, versionCmd, infoCmd, selectCmd,
		meanCmd, anomaliesCmd, plotCmd, trendCmd} {
		cmd.SilenceUsage = true // We don't want the usage messages in the GUI.
	}

	const address = "localhost:7272"
	const tmpl = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>climatology</title>
	<style>
		html, body {padding: 0; margin: 2% 0; font-family: sans-serif;}
		.container { max-width: 700px; margin: 0 auto; padding: 10px; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; color: #333; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] code { font-weight: bold; }
		div[id^="gobra-"] input { font-family: monospace; margin-left: .2em; width: 50%; outline:none; }
		.red-border{ border: 1px solid #c35; }
		.green-border{ border: 1px solid #3c5; }
		.blue-border{ border: 1px solid #35c; }
	</style>
</head>
<body>
<div class="container">
	<h1>climatology</h1>
	<p>Choose a dataset and a command below.</p>
	<p>
		Color key: black=default;
		<font color="red">red</font>=error;
		<font color="green">green</font>=value from config file;
		<font color="blue">blue</font>=user entered
	</p>
	<div>
		{{.}}
	</div>
	<footer>
		© 2019 the InMAP authors
	</footer>
</div>

<script>
// If the configuration file is changed, send the new file path
// to the server and update fields

let allFlags = [...document.querySelectorAll('[data-name]')];
allFlags.forEach(x => {
	let inputField = x.children[0];
	inputField.addEventListener("input", e => {
		inputField.classList.remove("green-border");
		inputField.classList.add("blue-border");
	})
})

let configInput = allFlags.filter(x => x.dataset.name == "config")[0].children[0];
configInput.addEventListener("input", e => {
	fetch("http://` + address + `/setConfig?config="+configInput.value)
		.then( res => {
			if (res.status !== 200) {
				if (res.status == 204) {
					configInput.classList.remove("blue-border");
					configInput.classList.remove("green-border");
					configInput.classList.add("red-border");
				} else {
					console.log("Error fetching /setConfig: ", res.statusText);
				}
			} else {
				res.json().then( data => {
					configInput.classList.remove("red-border");
					for (let key in data)
						for(let f of allFlags)
							if (f.dataset.name == key) {
								let input = f.children[0];
								var newValue = JSON.stringify(data[key]).replace(/^"+|"+$/g,'');
								if (input.value != newValue) {
									input.value = newValue
									input.classList.remove("blue-border");
									input.classList.add("green-border");
								}
							}
				})
			}
		})
		.catch( err => {
			console.log("Error fetching /setConfig", err)
		})
})
</script>
</body>
</html>`

	output := template.Must(template.New("").Parse(tmpl))
	server := gobra.Server{Root: Root, ServerAddress: address, AllowCORS: false, HTML: output}
	logrus.Info("Server starting... ")
	open.Run("http://" + address)
	fmt.Println("If not opened automatically, please visit http://" + address)
	server.Start()
}
