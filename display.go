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
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/climatology/internal/hash"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Displayer shows a finished figure to the user. name describes the
// request that produced the figure.
type Displayer interface {
	Display(name string, p *plot.Plot) error
}

// DisplayFunc adapts a function to the Displayer interface.
type DisplayFunc func(name string, p *plot.Plot) error

// Display calls f(name, p).
func (f DisplayFunc) Display(name string, p *plot.Plot) error { return f(name, p) }

// FileDisplay saves figures to image files and optionally opens them
// with the default viewer of the operating system.
type FileDisplay struct {
	// Dir is the directory figures are saved in. If empty,
	// the system temporary directory is used.
	Dir string

	// Width and Height are the figure dimensions. Zero values
	// mean 6.4 by 4.8 inches.
	Width, Height vg.Length

	// Format is the file extension, which determines the image
	// format, e.g. "png", "svg", "pdf". The default is "png".
	Format string

	// Open specifies whether saved figures should be opened.
	Open bool

	Log logrus.FieldLogger
}

// NewFileDisplay returns a FileDisplay with default settings that saves
// figures in dir and opens them.
func NewFileDisplay(dir string) *FileDisplay {
	return &FileDisplay{Dir: dir, Open: true, Log: logrus.StandardLogger()}
}

// Path returns the file that the figure called name will be saved to.
func (fd *FileDisplay) Path(name string) string {
	dir := fd.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	format := fd.Format
	if format == "" {
		format = "png"
	}
	return filepath.Join(dir, fmt.Sprintf("climatology_%s.%s", hash.Key(name), format))
}

// Display saves p and, if fd.Open is true, opens the saved file.
func (fd *FileDisplay) Display(name string, p *plot.Plot) error {
	w, h := fd.Width, fd.Height
	if w == 0 {
		w = 6.4 * vg.Inch
	}
	if h == 0 {
		h = 4.8 * vg.Inch
	}
	path := fd.Path(name)
	if fd.Dir != "" {
		if err := os.MkdirAll(fd.Dir, os.ModePerm); err != nil {
			return fmt.Errorf("climatology: creating figure directory: %v", err)
		}
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("climatology: saving figure %s: %v", name, err)
	}
	log := fd.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"figure": name,
		"file":   path,
	}).Info("saved figure")
	if fd.Open {
		if err := open.Run(path); err != nil {
			return fmt.Errorf("climatology: opening figure %s: %v", path, err)
		}
	}
	return nil
}
