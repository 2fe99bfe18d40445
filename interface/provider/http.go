package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/cavaliercoder/grab"
)

// HTTPFetcher implements Fetcher for http(s) links. Basic auth is read from the url.
type HTTPFetcher struct{}

// Name implements Fetcher
func (f *HTTPFetcher) Name() string {
	return "HTTP"
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, src *url.URL, localDir string) (string, error) {
	localFile := filepath.Join(localDir, fileName(src))
	var user, pword string
	var hasAuth bool
	if src.User != nil {
		user = src.User.Username()
		pword, hasAuth = src.User.Password()
	}
	link := *src
	link.User = nil

	req, err := grab.NewRequest(localFile, link.String())
	if err != nil {
		return "", fmt.Errorf("HTTPFetcher.NewRequest: %w", err)
	}
	req = req.WithContext(ctx)
	if hasAuth {
		req.HTTPRequest.SetBasicAuth(user, pword)
	}
	if err := download(ctx, req, link.String(), hasAuth); err != nil {
		return "", fmt.Errorf("HTTPFetcher.%w", err)
	}
	return localFile, nil
}

// fileName returns the name of the file targeted by the url
func fileName(src *url.URL) string {
	name := path.Base(src.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

func displayProgress(ctx context.Context, prefix string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", prefix, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}

func checkRedirectAndCopyAuth(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	if auth, ok := via[0].Header["Authorization"]; ok {
		req.Header.Add("Authorization", auth[0])
	}
	return nil
}

// download a file with display every 5%
func download(ctx context.Context, req *grab.Request, displayPrefix string, copyAuthOnRedirect bool) error {
	client := grab.NewClient()
	if copyAuthOnRedirect {
		client.HTTPClient.CheckRedirect = checkRedirectAndCopyAuth
	}
	resp := client.Do(req)

	displayProgress(ctx, displayPrefix, resp, 0.05)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("download[%s]: %w", displayPrefix, err)
		if resp.HTTPResponse == nil {
			return service.MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case 408, 429, 500, 501, 502, 503, 504:
			return service.MakeTemporary(err)
		default:
			return err
		}
	}
	return nil
}
