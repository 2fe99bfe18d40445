package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	catalogsvc "github.com/airbusgeo/ee-ingester/interface/catalog"
)

// Catalog resolves the paths relative to the home root of the user and exposes the namespace operations
type Catalog struct {
	Service catalogsvc.Service

	mu        sync.Mutex
	home      string
	fixedHome bool
}

// New creates a Catalog on top of the service.
// If home is not empty, it is used as the root of the relative paths, otherwise the first asset root of the user is used.
func New(svc catalogsvc.Service, home string) *Catalog {
	return &Catalog{Service: svc, home: strings.TrimSuffix(home, "/"), fixedHome: home != ""}
}

// Home retrieves the root directory of the user (and refreshes the cache)
func (c *Catalog) Home(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshHome(ctx)
}

func (c *Catalog) refreshHome(ctx context.Context) (string, error) {
	if c.fixedHome {
		return c.home, nil
	}
	roots, err := c.Service.AssetRoots(ctx)
	if err != nil {
		return "", fmt.Errorf("Home.%w", err)
	}
	if len(roots) == 0 {
		return "", fmt.Errorf("Home: no asset root found for this user")
	}
	c.home = roots[0]
	return c.home, nil
}

// cachedHome returns the root directory of the user, retrieved once
func (c *Catalog) cachedHome(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.home != "" {
		return c.home, nil
	}
	return c.refreshHome(ctx)
}

// Path returns the absolute path of the asset p
func (c *Catalog) Path(ctx context.Context, p string) (string, error) {
	if isAbsolute(p) {
		return ResolvePath("", p), nil
	}
	home, err := c.cachedHome(ctx)
	if err != nil {
		return "", fmt.Errorf("Path[%s].%w", p, err)
	}
	return ResolvePath(home, p), nil
}

func isAbsolute(p string) bool {
	return strings.HasPrefix(p, "/") || strings.HasPrefix(p, "users/") || strings.HasPrefix(p, "projects/")
}

// ResolvePath returns the absolute path of p given the home directory:
//   - "" is the home directory
//   - a leading "/" marks an absolute path and is removed
//   - paths starting with "users/" or "projects/" are already absolute
//   - other paths are relative to home
func ResolvePath(home, p string) string {
	switch {
	case p == "":
		return home
	case strings.HasPrefix(p, "/"):
		return p[1:]
	case strings.HasPrefix(p, "users/"), strings.HasPrefix(p, "projects/"):
		return p
	}
	return path.Join(home, p)
}
