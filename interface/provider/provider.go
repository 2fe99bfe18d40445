package provider

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/google/uuid"
)

// Fetcher downloads a remote file to a local directory
type Fetcher interface {
	// Fetch the file and returns its local path
	Fetch(ctx context.Context, src *url.URL, localDir string) (string, error)
	// Name of the fetcher
	Name() string
}

// ErrUnsupportedScheme is returned when no fetcher handles the scheme of a source
type ErrUnsupportedScheme struct {
	Scheme string
}

func (e ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("unsupported scheme: %s", e.Scheme)
}

// Temporary download errors are retried
var (
	fetchTries   = 3
	fetchBackoff = time.Second
)

var fetchers = map[string]Fetcher{
	"http":  &HTTPFetcher{},
	"https": &HTTPFetcher{},
	"ftp":   &FTPFetcher{},
}

// LocalPath returns the path of the source if it is a local file (plain path or file://)
func LocalPath(src string) (string, bool) {
	u, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	switch u.Scheme {
	case "":
		return src, true
	case "file":
		return u.Path, true
	}
	return "", false
}

// Fetch makes the source available as a local file.
// Local paths are returned as is. Remote files are downloaded in a new directory of workdir.
// Archives are extracted and must contain exactly one file.
// cleanup removes everything that has been created and must be called once the file is no longer needed.
func Fetch(ctx context.Context, src, workdir string) (string, func(), error) {
	cleanup := func() {}
	u, err := url.Parse(src)
	if err != nil {
		return "", cleanup, fmt.Errorf("Fetch[%s]: %w", src, err)
	}
	local := src
	switch u.Scheme {
	case "", "file":
		if u.Scheme == "file" {
			local = u.Path
		}
		if !isArchive(local) {
			return local, cleanup, nil
		}
	}

	if workdir == "" {
		workdir = os.TempDir()
	}
	dir := filepath.Join(workdir, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", cleanup, fmt.Errorf("Fetch.MkdirAll: %w", err)
	}
	cleanup = func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Logger(ctx).Sugar().Warnf("unable to remove %s: %v", dir, err)
		}
	}

	if u.Scheme != "" && u.Scheme != "file" {
		fetcher, ok := fetchers[strings.ToLower(u.Scheme)]
		if !ok {
			cleanup()
			return "", func() {}, ErrUnsupportedScheme{Scheme: u.Scheme}
		}
		log.Logger(ctx).Sugar().Debugf("Fetching %s with %s fetcher", src, fetcher.Name())
		err = service.Retriable(ctx, func() error {
			var ferr error
			local, ferr = fetcher.Fetch(ctx, u, dir)
			return ferr
		}, fetchBackoff, fetchTries)
		if err != nil {
			cleanup()
			return "", func() {}, fmt.Errorf("Fetch.%w", err)
		}
	}

	if isArchive(local) {
		if local, err = unarchive(local, dir); err != nil {
			cleanup()
			return "", func() {}, fmt.Errorf("Fetch.%w", err)
		}
	}
	return local, cleanup, nil
}
