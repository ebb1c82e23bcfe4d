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
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// maxDownloadTime is the longest time spent retrying a failed download.
var maxDownloadTime = 5 * time.Minute

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or a blob.
// If it is, it downloads the file to a temporary directory and
// returns the path to the downloaded file. Otherwise the path is
// returned unchanged. cleanup removes any downloaded file and
// must be called once the file is no longer needed.
func maybeDownload(ctx context.Context, p string, log logrus.FieldLogger) (string, func(), error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return p, func() {}, nil
	}
	switch {
	case strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://"):
		return download(ctx, p, log, downloadHTTP)
	case IsBlob(p):
		return download(ctx, p, log, copyFromBlob)
	}
	return p, func() {}, nil
}

// download saves the file at p to a temporary directory using fetch.
func download(ctx context.Context, p string, log logrus.FieldLogger, fetch func(context.Context, io.Writer, string) error) (string, func(), error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", nil, fmt.Errorf("climutil: parsing download location: %v", err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", nil, fmt.Errorf("climutil: download location %s has no file name", p)
	}
	// Prepare a temporary directory for the downloads.
	dir, err := ioutil.TempDir("", "climatology")
	if err != nil {
		return "", nil, fmt.Errorf("climutil: failed creating temporary download directory: %v", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.WithError(err).Warn("removing downloaded file")
		}
	}
	dst := filepath.Join(dir, name)
	w, err := os.Create(dst)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("climutil: failed creating file for download: %v", err)
	}
	log.WithFields(logrus.Fields{
		"from": p,
		"to":   dst,
	}).Info("downloading file")
	if err := fetch(ctx, w, p); err != nil {
		w.Close()
		cleanup()
		return "", nil, fmt.Errorf("climutil: downloading %s: %v", p, err)
	}
	if err := w.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return dst, cleanup, nil
}

// downloadHTTP copies the file at the specified URL to w, retrying
// with exponential backoff when the request fails.
func downloadHTTP(ctx context.Context, w io.Writer, u string) error {
	f, ok := w.(*os.File)
	if !ok {
		return fmt.Errorf("climutil: can only download to a file")
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxDownloadTime
	return backoff.RetryNotify(
		func() error {
			if err := resetFile(f); err != nil {
				return backoff.Permanent(err)
			}
			req, err := http.NewRequest("GET", u, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := http.DefaultClient.Do(req.WithContext(ctx))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			switch {
			case resp.StatusCode >= 500:
				return fmt.Errorf("server error: %s", resp.Status)
			case resp.StatusCode != http.StatusOK:
				return backoff.Permanent(fmt.Errorf("%s", resp.Status))
			}
			_, err = io.Copy(f, resp.Body)
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			logrus.WithFields(logrus.Fields{
				"url":   u,
				"error": err,
			}).Warnf("download failed; retrying in %v", d)
		},
	)
}

// resetFile truncates f so that a download can start again.
func resetFile(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}
